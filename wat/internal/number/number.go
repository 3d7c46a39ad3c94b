// Package number parses and formats numeric literals of the text format.
// Floats round-trip bit for bit, including nan payloads and negative zero.
package number

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type floatLayout struct {
	sign, exp, mant, canon uint64
	bits                   int
}

var (
	layout32 = floatLayout{sign: 1 << 31, exp: 0x7F800000, mant: 0x7FFFFF, canon: 1 << 22, bits: 32}
	layout64 = floatLayout{sign: 1 << 63, exp: 0x7FF0000000000000, mant: 0xFFFFFFFFFFFFF, canon: 1 << 51, bits: 64}
)

// parseInteger parses a decimal or hex integer literal that must fit the
// given width either as a signed or an unsigned value, returning its two's
// complement bits.
func parseInteger(s string, bits int) (uint64, error) {
	text := strings.ReplaceAll(s, "_", "")
	neg := false
	switch {
	case strings.HasPrefix(text, "-"):
		neg = true
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base = 16
		text = text[2:]
	}
	mag, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}

	mask := uint64(math.MaxUint64)
	if bits < 64 {
		mask = 1<<bits - 1
	}
	if neg {
		if mag > 1<<(bits-1) {
			return 0, fmt.Errorf("integer %q out of range for i%d", s, bits)
		}
		return -mag & mask, nil
	}
	if mag > mask {
		return 0, fmt.Errorf("integer %q out of range for i%d", s, bits)
	}
	return mag, nil
}

func ParseU32(s string) (uint32, error) {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	v, err := parseInteger(s, 32)
	return uint32(v), err
}

func ParseI32(s string) (int32, error) {
	v, err := parseInteger(s, 32)
	return int32(uint32(v)), err
}

func ParseI64(s string) (int64, error) {
	v, err := parseInteger(s, 64)
	return int64(v), err
}

// parseFloat parses a float literal into raw bits, including inf and
// nan with an optional payload.
func parseFloat(s string, l floatLayout) (uint64, error) {
	text := strings.ReplaceAll(s, "_", "")
	var sign uint64
	switch {
	case strings.HasPrefix(text, "-"):
		sign = l.sign
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}

	switch {
	case text == "inf":
		return sign | l.exp, nil
	case text == "nan":
		return sign | l.exp | l.canon, nil
	case strings.HasPrefix(text, "nan:0x"):
		payload, err := strconv.ParseUint(text[len("nan:0x"):], 16, 64)
		if err != nil || payload == 0 || payload > l.mant {
			return 0, fmt.Errorf("invalid nan payload %q", s)
		}
		return sign | l.exp | payload, nil
	}

	if (strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")) && !strings.ContainsAny(text, "pP") {
		text += "p0"
	}
	f, err := strconv.ParseFloat(text, l.bits)
	if err != nil {
		return 0, fmt.Errorf("invalid f%d %q", l.bits, s)
	}
	if l.bits == 32 {
		return sign | uint64(math.Float32bits(float32(f))), nil
	}
	return sign | math.Float64bits(f), nil
}

func ParseF32(s string) (float32, error) {
	b, err := parseFloat(s, layout32)
	return math.Float32frombits(uint32(b)), err
}

func ParseF64(s string) (float64, error) {
	b, err := parseFloat(s, layout64)
	return math.Float64frombits(b), err
}

// formatFloat renders raw float bits so that parseFloat restores them exactly.
func formatFloat(bits uint64, l floatLayout) string {
	neg := ""
	if bits&l.sign != 0 {
		neg = "-"
	}
	if bits&l.exp == l.exp {
		m := bits & l.mant
		switch m {
		case 0:
			return neg + "inf"
		case l.canon:
			return neg + "nan"
		}
		return fmt.Sprintf("%snan:0x%x", neg, m)
	}
	if l.bits == 32 {
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(bits))), 'g', -1, 32)
	}
	return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
}

func FormatF32(v float32) string {
	return formatFloat(uint64(math.Float32bits(v)), layout32)
}

func FormatF64(v float64) string {
	return formatFloat(math.Float64bits(v), layout64)
}
