package sexpr

import "fmt"

// TokenType classifies a lexical token of the text form.
type TokenType int

const (
	LParen TokenType = iota
	RParen
	Atom
	String
)

func (t TokenType) String() string {
	switch t {
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Atom:
		return "atom"
	case String:
		return "string"
	}
	return "unknown"
}

// Token is a lexical token. For strings, Value holds the raw contents
// between the quotes with escapes left intact.
type Token struct {
	Value string
	Type  TokenType
	Line  int
}

// SyntaxError reports a lexical or structural error with its line.
type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isAtomChar(c byte) bool {
	return !isSpace(c) && c != '(' && c != ')' && c != '"' && c != ';'
}

// Tokenize splits text-form source into tokens. Line comments (;;) and
// nested block comments ((; ;)) are skipped.
func Tokenize(src string) ([]Token, error) {
	var tokens []Token
	line := 1

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '\n':
			line++
			continue
		case isSpace(c):
			continue
		}

		if c == ';' {
			if i+1 < len(src) && src[i+1] == ';' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				i-- // let the newline be counted
				continue
			}
			return nil, &SyntaxError{Msg: "unexpected ';'", Line: line}
		}

		if c == '(' {
			if i+1 < len(src) && src[i+1] == ';' {
				start := line
				depth := 1
				i += 2
				for i < len(src) && depth > 0 {
					switch {
					case src[i] == '(' && i+1 < len(src) && src[i+1] == ';':
						depth++
						i++
					case src[i] == ';' && i+1 < len(src) && src[i+1] == ')':
						depth--
						i++
					case src[i] == '\n':
						line++
					}
					i++
				}
				if depth > 0 {
					return nil, &SyntaxError{Msg: "unterminated block comment", Line: start}
				}
				i--
				continue
			}
			tokens = append(tokens, Token{Value: "(", Type: LParen, Line: line})
			continue
		}

		if c == ')' {
			tokens = append(tokens, Token{Value: ")", Type: RParen, Line: line})
			continue
		}

		if c == '"' {
			start := i + 1
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\n' {
					return nil, &SyntaxError{Msg: "newline in string literal", Line: line}
				}
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return nil, &SyntaxError{Msg: "unterminated string literal", Line: line}
			}
			tokens = append(tokens, Token{Value: src[start:i], Type: String, Line: line})
			continue
		}

		start := i
		for i < len(src) && isAtomChar(src[i]) {
			i++
		}
		tokens = append(tokens, Token{Value: src[start:i], Type: Atom, Line: line})
		i--
	}

	return tokens, nil
}
