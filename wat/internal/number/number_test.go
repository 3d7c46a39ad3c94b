package number

import (
	"math"
	"testing"
)

func TestParseI32(t *testing.T) {
	tests := []struct {
		text string
		want int32
	}{
		{"0", 0},
		{"-1", -1},
		{"4294967295", -1},
		{"0x7fff_ffff", math.MaxInt32},
		{"-2147483648", math.MinInt32},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseI32(tt.text)
			if err != nil || got != tt.want {
				t.Errorf("ParseI32(%q) = %d, %v; want %d", tt.text, got, err, tt.want)
			}
		})
	}

	for _, bad := range []string{"-2147483649", "4294967296", "abc", ""} {
		if _, err := ParseI32(bad); err == nil {
			t.Errorf("ParseI32(%q): expected error", bad)
		}
	}
	if _, err := ParseU32("-1"); err == nil {
		t.Error("ParseU32 accepted a negative index")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	f32bits := []uint32{0, 0x80000000, 0x3FC00000, 0x7F800000, 0xFF800000, 0x7FC00000, 0xFFC00000, 0x7F800001, 0x00000001}
	for _, bits := range f32bits {
		text := FormatF32(math.Float32frombits(bits))
		got, err := ParseF32(text)
		if err != nil || math.Float32bits(got) != bits {
			t.Errorf("f32 %08x -> %q -> %08x, %v", bits, text, math.Float32bits(got), err)
		}
	}

	f64bits := []uint64{0, 1 << 63, 0x3FF8000000000000, 0x7FF0000000000000, 0x7FF8000000000000, 0xFFF0000000000001, 1}
	for _, bits := range f64bits {
		text := FormatF64(math.Float64frombits(bits))
		got, err := ParseF64(text)
		if err != nil || math.Float64bits(got) != bits {
			t.Errorf("f64 %016x -> %q -> %016x, %v", bits, text, math.Float64bits(got), err)
		}
	}
}

func TestParseF64HexFloat(t *testing.T) {
	if v, err := ParseF64("0x1.8"); err != nil || v != 1.5 {
		t.Errorf("ParseF64(0x1.8) = %v, %v", v, err)
	}
}
