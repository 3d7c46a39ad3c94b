package jsscan

import (
	"fmt"
	"strings"
)

// Span is a half-open byte range in the source.
type Span struct {
	Start int
	End   int
}

// Text returns the source text covered by s.
func (s Span) Text(src string) string {
	return src[s.Start:s.End]
}

// Empty reports whether s covers nothing.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// MemberKind distinguishes class members.
type MemberKind uint8

const (
	MemberMethod MemberKind = iota
	MemberGetter
	MemberSetter
	MemberField
)

func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberGetter:
		return "getter"
	case MemberSetter:
		return "setter"
	case MemberField:
		return "field"
	}
	return fmt.Sprintf("MemberKind(%d)", k)
}

// Param is a declared function parameter. Type is the TypeScript
// annotation, empty in plain JS.
type Param struct {
	Name string
	Type string
	Span Span
}

// Signature is the shape shared by class methods and functions.
type Signature struct {
	Params     []Param
	ParamsSpan Span // including parentheses
	ReturnType string
	ReturnSpan Span // type text after the colon; empty when absent
	Body       Span // including braces; empty for declarations
}

// HasBody reports whether the signature is followed by a block.
func (s *Signature) HasBody() bool {
	return !s.Body.Empty()
}

// Member is a class member.
type Member struct {
	Signature
	Doc       *Doc
	Name      string
	Modifiers []string
	NameSpan  Span
	Span      Span // from the first modifier to the closing brace or semicolon
	Kind      MemberKind
	Static    bool
}

// HasModifier reports whether the member carries the given keyword.
func (m *Member) HasModifier(word string) bool {
	for _, mod := range m.Modifiers {
		if mod == word {
			return true
		}
	}
	return false
}

// Class is a class declaration.
type Class struct {
	Doc      *Doc
	Name     string
	Members  []*Member
	NameSpan Span
	Body     Span // including braces
	Span     Span
	Exported bool
}

// Member returns the first member with the given name and kind.
func (c *Class) Member(name string, kind MemberKind) *Member {
	for _, m := range c.Members {
		if m.Name == name && m.Kind == kind {
			return m
		}
	}
	return nil
}

// Function is a named top-level function declaration.
type Function struct {
	Signature
	Doc       *Doc
	Name      string
	NameSpan  Span
	Modifiers Span // export/default/async/declare keywords; empty when none
	Span      Span
	Exported  bool
	Default   bool
}

// File is the structural view of one JS or TS source.
type File struct {
	Src       string
	Tokens    []Token
	Comments  []Token
	Classes   []*Class
	Functions []*Function

	match map[int]int // opening bracket token -> closing token
	depth []int       // bracket depth before each token
}

// Parse tokenizes src and extracts its top-level classes and functions.
func Parse(src string) (*File, error) {
	tokens, comments, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	f := &File{Src: src, Tokens: tokens, Comments: comments}
	if err := f.pairBrackets(); err != nil {
		return nil, err
	}
	f.scanTopLevel()
	return f, nil
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

func (f *File) pairBrackets() error {
	f.match = map[int]int{}
	f.depth = make([]int, len(f.Tokens))
	var stack []int
	for i, t := range f.Tokens {
		f.depth[i] = len(stack)
		if t.Kind != TokPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			stack = append(stack, i)
		case ")", "]", "}":
			if len(stack) == 0 {
				return &SyntaxError{Line: t.Line, Msg: fmt.Sprintf("unexpected %q", t.Text)}
			}
			open := stack[len(stack)-1]
			if closers[f.Tokens[open].Text] != t.Text {
				return &SyntaxError{Line: t.Line, Msg: fmt.Sprintf("%q closes %q from line %d", t.Text, f.Tokens[open].Text, f.Tokens[open].Line)}
			}
			stack = stack[:len(stack)-1]
			f.match[open] = i
			f.depth[i] = len(stack)
		}
	}
	if len(stack) > 0 {
		open := f.Tokens[stack[len(stack)-1]]
		return &SyntaxError{Line: open.Line, Msg: fmt.Sprintf("unclosed %q", open.Text)}
	}
	return nil
}

func (f *File) tok(i int) Token {
	if i < 0 || i >= len(f.Tokens) {
		return Token{Pos: len(f.Src), End: len(f.Src)}
	}
	return f.Tokens[i]
}

// isTopModifier reports keywords that may precede a top-level class or
// function declaration.
func isTopModifier(t Token) bool {
	switch t.Text {
	case "export", "default", "declare", "async", "abstract":
		return t.Kind == TokIdent
	}
	return false
}

func (f *File) scanTopLevel() {
	for i := 0; i < len(f.Tokens); i++ {
		if f.depth[i] != 0 {
			continue
		}
		t := f.Tokens[i]
		if t.Kind != TokIdent {
			continue
		}
		switch t.Text {
		case "class":
			if c, next := f.class(i); c != nil {
				f.Classes = append(f.Classes, c)
				i = next
			}
		case "function":
			if fn, next := f.function(i); fn != nil {
				f.Functions = append(f.Functions, fn)
				i = next
			}
		}
	}
}

// modifiersBefore walks back over declaration modifiers preceding token i
// and returns the index of the first one.
func (f *File) modifiersBefore(i int) int {
	start := i
	for start > 0 && isTopModifier(f.Tokens[start-1]) && f.depth[start-1] == 0 {
		start--
	}
	return start
}

func (f *File) class(kw int) (*Class, int) {
	name := f.tok(kw + 1)
	if name.Kind != TokIdent {
		return nil, kw
	}
	open := kw + 2
	for open < len(f.Tokens) && !f.Tokens[open].Is("{") {
		open++
	}
	closeIdx, ok := f.match[open]
	if !ok {
		return nil, kw
	}
	start := f.modifiersBefore(kw)
	c := &Class{
		Name:     name.Text,
		NameSpan: Span{name.Pos, name.End},
		Body:     Span{f.Tokens[open].Pos, f.Tokens[closeIdx].End},
		Span:     Span{f.Tokens[start].Pos, f.Tokens[closeIdx].End},
		Exported: f.hasModifier(start, kw, "export"),
		Doc:      f.docBefore(f.Tokens[start].Pos),
	}
	c.Members = f.members(open+1, closeIdx)
	return c, closeIdx
}

func (f *File) hasModifier(from, to int, word string) bool {
	for i := from; i < to; i++ {
		if f.Tokens[i].Text == word {
			return true
		}
	}
	return false
}

func (f *File) function(kw int) (*Function, int) {
	i := kw + 1
	if f.tok(i).Is("*") {
		i++
	}
	name := f.tok(i)
	if name.Kind != TokIdent {
		return nil, kw
	}
	i++
	sig, end, ok := f.signature(i, len(f.Tokens))
	if !ok {
		return nil, kw
	}
	start := f.modifiersBefore(kw)
	fn := &Function{
		Signature: sig,
		Name:      name.Text,
		NameSpan:  Span{name.Pos, name.End},
		Span:      Span{f.Tokens[start].Pos, f.tok(end).End},
		Exported:  f.hasModifier(start, kw, "export"),
		Default:   f.hasModifier(start, kw, "default"),
		Doc:       f.docBefore(f.Tokens[start].Pos),
	}
	if start < kw {
		fn.Modifiers = Span{f.Tokens[start].Pos, f.Tokens[kw].Pos}
	}
	return fn, end
}

// signature parses optional type parameters, the parameter list, an
// optional return type annotation and either a body or a terminating
// semicolon, starting at token i. It returns the index of the last token
// consumed.
func (f *File) signature(i, limit int) (Signature, int, bool) {
	var sig Signature
	if f.tok(i).Is("<") {
		i = f.skipAngles(i, limit)
	}
	if !f.tok(i).Is("(") {
		return sig, i, false
	}
	closeIdx := f.match[i]
	sig.ParamsSpan = Span{f.Tokens[i].Pos, f.Tokens[closeIdx].End}
	sig.Params = f.params(i+1, closeIdx)
	i = closeIdx + 1

	if f.tok(i).Is(":") {
		typeStart := i + 1
		j := f.typeEnd(typeStart, limit)
		if j > typeStart {
			sig.ReturnSpan = Span{f.Tokens[typeStart].Pos, f.Tokens[j-1].End}
			sig.ReturnType = sig.ReturnSpan.Text(f.Src)
		}
		i = j
	}

	switch {
	case f.tok(i).Is("{"):
		end := f.match[i]
		sig.Body = Span{f.Tokens[i].Pos, f.Tokens[end].End}
		return sig, end, true
	case f.tok(i).Is(";"):
		return sig, i, true
	}
	// declaration without a terminating semicolon
	return sig, i - 1, true
}

func (f *File) skipAngles(i, limit int) int {
	depth := 0
	for ; i < limit; i++ {
		switch {
		case f.Tokens[i].Is("<"):
			depth++
		case f.Tokens[i].Is(">"):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// typeEnd returns the index just past a type annotation starting at i.
// The type ends at a semicolon, a comma or closing bracket of the
// enclosing list, an assignment, or a block that follows a completed type.
func (f *File) typeEnd(i, limit int) int {
	angles := 0
	for i < limit {
		t := f.Tokens[i]
		switch {
		case t.Is("<"):
			angles++
		case t.Is(">") && angles > 0 && !f.tok(i-1).Is("="):
			angles--
		case t.Is("(") || t.Is("["):
			i = f.match[i] + 1
			continue
		case t.Is("{"):
			if angles == 0 && completesType(f.tok(i-1)) && !f.isTypeStart(i) {
				return i
			}
			i = f.match[i] + 1
			continue
		case angles == 0 && (t.Is(";") || t.Is(",") || t.Is(")") || t.Is("]") || t.Is("}") || t.Is("=")):
			if t.Is("=") && f.tok(i+1).Is(">") {
				i += 2
				continue
			}
			return i
		}
		i++
	}
	return i
}

// isTypeStart reports whether the token at i opens the annotation itself,
// as in ": { a: number }".
func (f *File) isTypeStart(i int) bool {
	prev := f.tok(i - 1)
	return prev.Is(":") || prev.Is("|") || prev.Is("&") || prev.Is("<") || prev.Is(",") || prev.Is(">") && f.tok(i-2).Is("=")
}

func completesType(t Token) bool {
	switch t.Kind {
	case TokIdent, TokString, TokNumber:
		return true
	case TokPunct:
		return t.Text == ">" || t.Text == "]" || t.Text == ")" || t.Text == "}"
	}
	return false
}

// params splits the tokens between parentheses into parameters.
func (f *File) params(from, to int) []Param {
	var out []Param
	start := from
	for i := from; i <= to; i++ {
		if i < to && !(f.Tokens[i].Is(",") && f.depth[i] == f.depth[from]) {
			if f.Tokens[i].Is("<") {
				i = f.skipAngles(i, to) - 1
			}
			continue
		}
		if i > start {
			out = append(out, f.param(start, i))
		}
		start = i + 1
	}
	return out
}

func (f *File) param(from, to int) Param {
	p := Param{Span: Span{f.Tokens[from].Pos, f.Tokens[to-1].End}}
	i := from
	for i < to && (f.Tokens[i].Is(".") || isAccessModifier(f.Tokens[i].Text) && i+1 < to && f.Tokens[i+1].Kind == TokIdent) {
		i++
	}
	if i < to && f.Tokens[i].Kind == TokIdent {
		p.Name = f.Tokens[i].Text
		i++
	}
	if i < to && f.Tokens[i].Is("?") {
		i++
	}
	if i < to && f.Tokens[i].Is(":") {
		end := f.typeEnd(i+1, to)
		if end > i+1 {
			p.Type = Span{f.Tokens[i+1].Pos, f.Tokens[end-1].End}.Text(f.Src)
		}
	}
	return p
}

func isAccessModifier(word string) bool {
	switch word {
	case "public", "private", "protected", "readonly":
		return true
	}
	return false
}

var memberModifiers = map[string]bool{
	"static": true, "async": true, "get": true, "set": true, "readonly": true,
	"public": true, "private": true, "protected": true, "declare": true,
	"abstract": true, "override": true,
}

// members parses the class body between tokens from and to (exclusive).
func (f *File) members(from, to int) []*Member {
	var out []*Member
	i := from
	for i < to {
		if f.Tokens[i].Is(";") {
			i++
			continue
		}
		m, next := f.member(i, to)
		if m != nil {
			out = append(out, m)
		}
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

func (f *File) member(start, limit int) (*Member, int) {
	m := &Member{}
	i := start
	for i < limit && f.Tokens[i].Kind == TokIdent && memberModifiers[f.Tokens[i].Text] && startsMemberName(f.tok(i+1)) {
		m.Modifiers = append(m.Modifiers, f.Tokens[i].Text)
		i++
	}
	if f.tok(i).Is("*") {
		i++
	}
	name := f.tok(i)
	switch {
	case name.Is("["):
		end := f.match[i]
		m.NameSpan = Span{name.Pos, f.Tokens[end].End}
		i = end + 1
	case name.Kind == TokIdent || name.Kind == TokString || name.Kind == TokNumber || name.Is("#"):
		if name.Is("#") {
			i++
			name = f.tok(i)
			m.NameSpan = Span{f.Tokens[i-1].Pos, name.End}
		} else {
			m.NameSpan = Span{name.Pos, name.End}
		}
		i++
	default:
		return nil, f.skipStatement(i, limit)
	}
	m.Name = strings.Trim(m.NameSpan.Text(f.Src), `"'`)
	m.Static = m.HasModifier("static")
	m.Doc = f.docBefore(f.Tokens[start].Pos)

	if f.tok(i).Is("?") || f.tok(i).Is("!") {
		i++
	}

	if f.tok(i).Is("(") || f.tok(i).Is("<") {
		sig, end, ok := f.signature(i, limit)
		if !ok {
			return nil, f.skipStatement(i, limit)
		}
		m.Signature = sig
		switch {
		case m.HasModifier("get"):
			m.Kind = MemberGetter
		case m.HasModifier("set"):
			m.Kind = MemberSetter
		default:
			m.Kind = MemberMethod
		}
		m.Span = Span{f.Tokens[start].Pos, f.tok(end).End}
		return m, end + 1
	}

	m.Kind = MemberField
	if f.tok(i).Is(":") {
		j := f.typeEnd(i+1, limit)
		if j > i+1 {
			m.ReturnSpan = Span{f.Tokens[i+1].Pos, f.Tokens[j-1].End}
			m.ReturnType = m.ReturnSpan.Text(f.Src)
		}
		i = j
	}
	end := f.skipStatement(i, limit)
	last := end - 1
	if last < i {
		last = i - 1
	}
	m.Span = Span{f.Tokens[start].Pos, f.tok(last).End}
	return m, end
}

// startsMemberName reports whether t can follow a modifier keyword, which
// distinguishes "get elements()" from a method called get.
func startsMemberName(t Token) bool {
	switch t.Kind {
	case TokIdent, TokString, TokNumber:
		return true
	case TokPunct:
		return t.Text == "[" || t.Text == "*" || t.Text == "#"
	}
	return false
}

// skipStatement advances to just past the next semicolon at the current
// depth, stopping before limit.
func (f *File) skipStatement(i, limit int) int {
	if i >= limit {
		return limit
	}
	base := f.depth[i]
	for i < limit {
		t := f.Tokens[i]
		if f.depth[i] == base && t.Is(";") {
			return i + 1
		}
		if end, ok := f.match[i]; ok {
			i = end + 1
			continue
		}
		i++
	}
	return limit
}

// Class returns the class with the given name.
func (f *File) Class(name string) *Class {
	for _, c := range f.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Function returns the top-level function with the given name.
func (f *File) Function(name string) *Function {
	for _, fn := range f.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// FindTopLevel returns the spans of every top-level token sequence equal
// to words, e.g. FindTopLevel("let", "wasm", ";").
func (f *File) FindTopLevel(words ...string) []Span {
	var out []Span
	for i := 0; i+len(words) <= len(f.Tokens); i++ {
		if f.depth[i] != 0 {
			continue
		}
		ok := true
		for j, w := range words {
			t := f.Tokens[i+j]
			if t.Text != w || t.Kind == TokString || t.Kind == TokComment {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, Span{f.Tokens[i].Pos, f.Tokens[i+len(words)-1].End})
		}
	}
	return out
}

// tokenIndex returns the index of the token starting at pos.
func (f *File) tokenIndex(pos int) (int, bool) {
	lo, hi := 0, len(f.Tokens)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case f.Tokens[mid].Pos < pos:
			lo = mid + 1
		case f.Tokens[mid].Pos > pos:
			hi = mid
		default:
			return mid, true
		}
	}
	return 0, false
}

// IdentsIn returns identifier tokens named name within s, skipping
// property accesses (obj.name) and object keys (name: value).
func (f *File) IdentsIn(s Span, name string) []Token {
	var out []Token
	for i, t := range f.Tokens {
		if t.Pos < s.Start || t.End > s.End || t.Kind != TokIdent || t.Text != name {
			continue
		}
		if f.tok(i-1).Is(".") {
			continue
		}
		if f.tok(i+1).Is(":") && (f.tok(i-1).Is("{") || f.tok(i-1).Is(",")) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Statements splits a block body (span including braces) into its
// statements. A statement ends at a semicolon at the block's depth or at
// the closing brace of a compound statement (if, for, while, try, switch,
// nested block, function or class declaration).
func (f *File) Statements(body Span) ([]Span, error) {
	open, ok := f.tokenIndex(body.Start)
	if !ok || !f.Tokens[open].Is("{") {
		return nil, fmt.Errorf("span does not start a block")
	}
	closeIdx := f.match[open]
	var out []Span
	i := open + 1
	for i < closeIdx {
		if f.Tokens[i].Is(";") {
			i++
			continue
		}
		end := f.statementEnd(i, closeIdx)
		out = append(out, Span{f.Tokens[i].Pos, f.Tokens[end].End})
		i = end + 1
	}
	return out, nil
}

var compoundKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "try": true, "switch": true,
	"function": true, "class": true, "do": true,
}

// continuations extend a compound statement past a closing brace.
var continuations = map[string]bool{"else": true, "catch": true, "finally": true, "while": true}

// statementEnd returns the index of the last token of the statement
// starting at i.
func (f *File) statementEnd(i, limit int) int {
	first := f.Tokens[i]
	compound := first.Is("{") || (first.Kind == TokIdent && compoundKeywords[first.Text])
	for j := i; j < limit; j++ {
		t := f.Tokens[j]
		if t.Is(";") {
			return j
		}
		end, ok := f.match[j]
		if !ok {
			continue
		}
		if t.Is("{") && compound && !continuations[f.tok(end+1).Text] {
			return end
		}
		j = end
	}
	return limit - 1
}

// LineIndent returns the whitespace that precedes pos on its line.
func LineIndent(src string, pos int) string {
	start := strings.LastIndexByte(src[:pos], '\n') + 1
	indent := src[start:pos]
	if strings.TrimLeft(indent, " \t") != "" {
		return ""
	}
	return indent
}

// WholeLines widens s to cover entire lines, including the trailing line
// break, when only whitespace shares those lines with it.
func WholeLines(src string, s Span) Span {
	start := strings.LastIndexByte(src[:s.Start], '\n') + 1
	if strings.TrimLeft(src[start:s.Start], " \t") != "" {
		return s
	}
	end := s.End
	for end < len(src) && (src[end] == ' ' || src[end] == '\t' || src[end] == '\r') {
		end++
	}
	if end < len(src) && src[end] != '\n' {
		return s
	}
	if end < len(src) {
		end++
	}
	return Span{start, end}
}
