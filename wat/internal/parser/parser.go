// Package parser builds a module AST from text-format tokens.
package parser

import (
	"fmt"
	"strings"

	"github.com/wippyai/bindpost/wat/internal/ast"
	"github.com/wippyai/bindpost/wat/sexpr"
)

type tokenType int

const (
	tokLParen tokenType = iota
	tokRParen
	tokIdent
	tokString
	tokNumber
)

func (t tokenType) String() string {
	switch t {
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	}
	return "unknown"
}

type token struct {
	Value string
	Type  tokenType
	Line  int
}

// classify splits sexpr atoms into numbers and identifiers. An atom is a
// number when it starts with a digit, optionally after a sign; inf and nan
// stay identifiers.
func classify(t sexpr.Token) tokenType {
	switch t.Type {
	case sexpr.LParen:
		return tokLParen
	case sexpr.RParen:
		return tokRParen
	case sexpr.String:
		return tokString
	}
	s := t.Value
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		return tokNumber
	}
	return tokIdent
}

type Parser struct {
	mod       *ast.Module
	typeMap   map[string]uint32
	funcMap   map[string]uint32
	globalMap map[string]uint32
	memMap    map[string]uint32
	tableMap  map[string]uint32
	elemMap   map[string]uint32
	dataMap   map[string]uint32
	tokens    []token
	labels    []string
	pos       int
}

// New returns a parser over tokens produced by sexpr.Tokenize.
func New(tokens []sexpr.Token) *Parser {
	p := &Parser{
		tokens:    make([]token, len(tokens)),
		typeMap:   make(map[string]uint32),
		funcMap:   make(map[string]uint32),
		globalMap: make(map[string]uint32),
		memMap:    make(map[string]uint32),
		tableMap:  make(map[string]uint32),
		elemMap:   make(map[string]uint32),
		dataMap:   make(map[string]uint32),
	}
	for i, t := range tokens {
		p.tokens[i] = token{Value: t.Value, Type: classify(t), Line: t.Line}
	}
	return p
}

// Parse reads exactly one (module ...) form.
func (p *Parser) Parse() (*ast.Module, error) {
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t != nil {
		return nil, fmt.Errorf("line %d: unexpected %q after module", t.Line, t.Value)
	}
	return mod, nil
}

func (p *Parser) peek() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) next() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) expect(typ tokenType) (*token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

// expectString reads a string literal and decodes its escapes.
func (p *Parser) expectString() (*token, error) {
	t, err := p.expect(tokString)
	if err != nil {
		return nil, err
	}
	b, err := decodeString(t)
	if err != nil {
		return nil, err
	}
	return &token{Value: string(b), Type: tokString, Line: t.Line}, nil
}

func decodeString(t *token) ([]byte, error) {
	b, err := sexpr.Unescape(t.Value)
	if err != nil {
		return nil, fmt.Errorf("line %d: %v", t.Line, err)
	}
	return b, nil
}

func (p *Parser) pushLabel(name string) {
	p.labels = append(p.labels, name)
}

func (p *Parser) popLabel() {
	if len(p.labels) > 0 {
		p.labels = p.labels[:len(p.labels)-1]
	}
}

func (p *Parser) resolveLabel(name string) (uint32, bool) {
	for i := len(p.labels) - 1; i >= 0; i-- {
		if p.labels[i] == name {
			return uint32(len(p.labels) - 1 - i), true
		}
	}
	return 0, false
}

func (p *Parser) parseValType() (ast.ValType, error) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return 0, err
	}
	switch t.Value {
	case "i32":
		return ast.ValTypeI32, nil
	case "i64":
		return ast.ValTypeI64, nil
	case "f32":
		return ast.ValTypeF32, nil
	case "f64":
		return ast.ValTypeF64, nil
	case "funcref":
		return ast.ValTypeFuncref, nil
	case "externref":
		return ast.ValTypeExternref, nil
	default:
		return 0, fmt.Errorf("line %d: unknown value type: %s", t.Line, t.Value)
	}
}

func (p *Parser) parseIdx(nameMap map[string]uint32) (uint32, error) {
	t := p.peek()
	if t == nil {
		return 0, fmt.Errorf("expected index")
	}

	if t.Type == tokIdent && strings.HasPrefix(t.Value, "$") {
		p.next()
		if nameMap != nil {
			if idx, ok := nameMap[t.Value]; ok {
				return idx, nil
			}
			return 0, fmt.Errorf("line %d: unknown identifier: %s", t.Line, t.Value)
		}
		return 0, fmt.Errorf("line %d: unexpected identifier: %s", t.Line, t.Value)
	}

	return p.parseU32()
}

func (p *Parser) findOrAddType(ft ast.FuncType) uint32 {
	for i, t := range p.mod.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(p.mod.Types))
	p.mod.Types = append(p.mod.Types, ft)
	return idx
}
