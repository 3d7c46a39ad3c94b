package parser

import (
	"fmt"

	"github.com/wippyai/bindpost/wat/internal/number"
)

func (p *Parser) parseU32() (uint32, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	v, err := number.ParseU32(t.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return v, nil
}

func (p *Parser) parseI32() (int32, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	v, err := number.ParseI32(t.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return v, nil
}

func (p *Parser) parseI64() (int64, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	v, err := number.ParseI64(t.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return v, nil
}

// floatToken reads a float literal. inf and nan forms arrive as identifiers.
func (p *Parser) floatToken() (*token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if t.Type != tokNumber && t.Type != tokIdent {
		return nil, fmt.Errorf("line %d: expected float, got %q", t.Line, t.Value)
	}
	return t, nil
}

func (p *Parser) parseF32() (float32, error) {
	t, err := p.floatToken()
	if err != nil {
		return 0, err
	}
	v, err := number.ParseF32(t.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return v, nil
}

func (p *Parser) parseF64() (float64, error) {
	t, err := p.floatToken()
	if err != nil {
		return 0, err
	}
	v, err := number.ParseF64(t.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return v, nil
}

// parseAlign converts an align= byte count to its log2 encoding.
func parseAlign(text string) (uint32, error) {
	v, err := number.ParseU32(text)
	if err != nil {
		return 0, err
	}
	if v == 0 || v&(v-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", v)
	}
	var log uint32
	for v > 1 {
		v >>= 1
		log++
	}
	return log, nil
}
