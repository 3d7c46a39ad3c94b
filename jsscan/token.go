package jsscan

import (
	"fmt"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind uint8

const (
	TokIdent TokenKind = iota
	TokPunct
	TokString
	TokTemplate
	TokNumber
	TokRegex
	TokComment
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "ident"
	case TokPunct:
		return "punct"
	case TokString:
		return "string"
	case TokTemplate:
		return "template"
	case TokNumber:
		return "number"
	case TokRegex:
		return "regex"
	case TokComment:
		return "comment"
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is a lexical token with its byte range in the source.
type Token struct {
	Text string
	Pos  int
	End  int
	Line int
	Kind TokenKind
}

// Is reports whether t is an identifier or punctuation with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokIdent || t.Kind == TokPunct) && t.Text == text
}

// SyntaxError reports a lexical error.
type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// regexPrefixWords are keywords after which a slash starts a regex.
var regexPrefixWords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type lexer struct {
	src      string
	pos      int
	line     int
	tokens   []Token
	comments []Token
}

// Tokenize splits JS or TS source into tokens. Comments are returned
// separately, in source order. Punctuation is one character per token.
func Tokenize(src string) (tokens, comments []Token, err error) {
	lx := &lexer{src: src, line: 1}
	if err := lx.run(); err != nil {
		return nil, nil, err
	}
	return lx.tokens, lx.comments, nil
}

func (lx *lexer) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: lx.line, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) emit(kind TokenKind, start, line int) {
	tok := Token{Kind: kind, Text: lx.src[start:lx.pos], Pos: start, End: lx.pos, Line: line}
	if kind == TokComment {
		lx.comments = append(lx.comments, tok)
		return
	}
	lx.tokens = append(lx.tokens, tok)
}

func (lx *lexer) advance(n int) {
	end := lx.pos + n
	lx.line += strings.Count(lx.src[lx.pos:end], "\n")
	lx.pos = end
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		start, line := lx.pos, lx.line
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			end := strings.IndexByte(lx.src[lx.pos:], '\n')
			if end < 0 {
				end = len(lx.src) - lx.pos
			}
			lx.pos += end
			lx.emit(TokComment, start, line)
		case strings.HasPrefix(lx.src[lx.pos:], "/*"):
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return lx.errorf("unterminated comment")
			}
			lx.advance(end + 4)
			lx.emit(TokComment, start, line)
		case c == '"' || c == '\'':
			if err := lx.quoted(c); err != nil {
				return err
			}
			lx.emit(TokString, start, line)
		case c == '`':
			if err := lx.template(); err != nil {
				return err
			}
			lx.emit(TokTemplate, start, line)
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			lx.number(start)
			lx.emit(TokNumber, start, line)
		case isIdentStart(c):
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}
			lx.emit(TokIdent, start, line)
		case c == '/' && lx.regexAllowed():
			if err := lx.regex(); err != nil {
				return err
			}
			lx.emit(TokRegex, start, line)
		default:
			lx.pos++
			lx.emit(TokPunct, start, line)
		}
	}
	return nil
}

func (lx *lexer) quoted(q byte) error {
	line := lx.line
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.advance(min(2, len(lx.src)-lx.pos))
			continue
		case '\n':
			return &SyntaxError{Line: line, Msg: "newline in string literal"}
		case q:
			lx.pos++
			return nil
		}
		lx.pos++
	}
	return &SyntaxError{Line: line, Msg: "unterminated string literal"}
}

// template scans a template literal, including nested ${...} expressions.
func (lx *lexer) template() error {
	line := lx.line
	lx.pos++
	for lx.pos < len(lx.src) {
		switch {
		case lx.src[lx.pos] == '\\':
			lx.advance(min(2, len(lx.src)-lx.pos))
		case lx.src[lx.pos] == '`':
			lx.pos++
			return nil
		case strings.HasPrefix(lx.src[lx.pos:], "${"):
			lx.pos += 2
			if err := lx.substitution(); err != nil {
				return err
			}
		default:
			lx.advance(1)
		}
	}
	return &SyntaxError{Line: line, Msg: "unterminated template literal"}
}

func (lx *lexer) substitution() error {
	depth := 1
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				lx.pos++
				return nil
			}
		case '"', '\'':
			if err := lx.quoted(c); err != nil {
				return err
			}
			continue
		case '`':
			if err := lx.template(); err != nil {
				return err
			}
			continue
		}
		lx.advance(1)
	}
	return lx.errorf("unterminated template substitution")
}

func (lx *lexer) number(start int) {
	hex := strings.HasPrefix(strings.ToLower(lx.src[start:min(start+2, len(lx.src))]), "0x")
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case isIdentPart(c) || c == '.':
			lx.pos++
		case (c == '+' || c == '-') && !hex && (lx.src[lx.pos-1] == 'e' || lx.src[lx.pos-1] == 'E'):
			lx.pos++
		default:
			return
		}
	}
}

// regexAllowed decides whether a slash starts a regular expression from
// the previous significant token.
func (lx *lexer) regexAllowed() bool {
	if len(lx.tokens) == 0 {
		return true
	}
	prev := lx.tokens[len(lx.tokens)-1]
	switch prev.Kind {
	case TokIdent:
		return regexPrefixWords[prev.Text]
	case TokPunct:
		return !strings.Contains(")]}", prev.Text)
	}
	return false
}

func (lx *lexer) regex() error {
	line := lx.line
	lx.pos++
	inClass := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\\':
			lx.pos += 2
			continue
		case c == '\n':
			return &SyntaxError{Line: line, Msg: "unterminated regular expression"}
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			lx.pos++
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}
			return nil
		}
		lx.pos++
	}
	return &SyntaxError{Line: line, Msg: "unterminated regular expression"}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
