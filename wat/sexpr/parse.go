package sexpr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse parses source into its top-level nodes.
func Parse(src string) ([]*Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	var (
		stack []*Node
		roots []*Node
	)
	for _, t := range tokens {
		switch t.Type {
		case LParen:
			stack = append(stack, &Node{Kind: KindList, Line: t.Line})
			continue
		case RParen:
			if len(stack) == 0 {
				return nil, &SyntaxError{Msg: "unexpected ')'", Line: t.Line}
			}
			done := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				roots = append(roots, done)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, done)
			}
			continue
		}

		n := &Node{Text: t.Value, Line: t.Line, Kind: KindAtom}
		if t.Type == String {
			n.Kind = KindString
		}
		if len(stack) == 0 {
			roots = append(roots, n)
			continue
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
	}

	if len(stack) > 0 {
		return nil, &SyntaxError{Msg: "unclosed '('", Line: stack[len(stack)-1].Line}
	}
	return roots, nil
}

// ParseOne parses source that must contain exactly one top-level list.
func ParseOne(src string) (*Node, error) {
	roots, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 || roots[0].Kind != KindList {
		return nil, fmt.Errorf("expected a single top-level list, got %d nodes", len(roots))
	}
	return roots[0], nil
}

// Unescape decodes the contents of a string literal.
func Unescape(raw string) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(raw) {
			return nil, fmt.Errorf("dangling escape in string literal")
		}
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '"', '\'', '\\':
			out = append(out, raw[i])
		case 'u':
			end := strings.IndexByte(raw[i:], '}')
			if i+1 >= len(raw) || raw[i+1] != '{' || end < 0 {
				return nil, fmt.Errorf("malformed unicode escape")
			}
			cp, err := strconv.ParseUint(raw[i+2:i+end], 16, 32)
			if err != nil || !utf8.ValidRune(rune(cp)) {
				return nil, fmt.Errorf("invalid unicode escape %q", raw[i:i+end+1])
			}
			out = utf8.AppendRune(out, rune(cp))
			i += end
		default:
			if i+1 >= len(raw) {
				return nil, fmt.Errorf("truncated hex escape")
			}
			v, err := strconv.ParseUint(raw[i:i+2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid escape \\%s", raw[i:i+2])
			}
			out = append(out, byte(v))
			i++
		}
	}
	return out, nil
}

// Escape encodes data as string literal contents. Printable ASCII is kept,
// everything else becomes a two-digit hex escape.
func Escape(data []byte) string {
	const hex = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			b.WriteByte('\\')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
