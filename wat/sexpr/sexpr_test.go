package sexpr

import (
	"bytes"
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	src := `(module ;; line comment
 (; block (; nested ;) comment ;)
 (data "a\"b\\" $x) 1.5)`
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []Token{
		{Value: "(", Type: LParen, Line: 1},
		{Value: "module", Type: Atom, Line: 1},
		{Value: "(", Type: LParen, Line: 3},
		{Value: "data", Type: Atom, Line: 3},
		{Value: `a\"b\\`, Type: String, Line: 3},
		{Value: "$x", Type: Atom, Line: 3},
		{Value: ")", Type: RParen, Line: 3},
		{Value: "1.5", Type: Atom, Line: 3},
		{Value: ")", Type: RParen, Line: 3},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated_string", "(data \"abc", 1},
		{"newline_in_string", "(data\n \"ab\ncd\")", 2},
		{"unterminated_comment", "(module\n(; open", 2},
		{"lone_semicolon", "(module ; x)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if se.Line != tt.line {
				t.Errorf("line = %d, want %d", se.Line, tt.line)
			}
		})
	}
}

func TestParse(t *testing.T) {
	root, err := ParseOne(`(module
 (func $f (param $0 i32)
  local.get $0
 )
 (export "f" (func $f))
)`)
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if !root.IsList("module") || len(root.Children) != 3 {
		t.Fatalf("unexpected root %s", root)
	}

	fn := root.Find("func")
	if fn == nil || fn.ID() != "$f" {
		t.Fatalf("func not found or unnamed: %v", fn)
	}
	if fn.Line != 2 || fn.Child(3).Line != 3 {
		t.Errorf("lines = %d/%d, want 2/3", fn.Line, fn.Child(3).Line)
	}
	exp := root.Find("export")
	name, err := exp.Child(1).Bytes()
	if err != nil || string(name) != "f" {
		t.Errorf("export name = %q, %v", name, err)
	}
	if root.Find("memory") != nil {
		t.Error("Find returned a node for a missing head")
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"(module", "(module))", ")"} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error", src)
		}
	}
	if _, err := ParseOne("(a) (b)"); err == nil {
		t.Error("ParseOne accepted two roots")
	}
}

func TestFormatPreservesLayout(t *testing.T) {
	src := `(module
 (type $t0 (func (param i32 i32)))
 (func $stub (type $t0) (param $0 i32) (param $1 i32)
  unreachable
 )
 (export "stub" (func $stub))
)
`
	roots, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Format(roots...); got != src {
		t.Errorf("Format mismatch\ngot:\n%s\nwant:\n%s", got, src)
	}
}

func TestSpliceAndFormat(t *testing.T) {
	root, err := ParseOne("(module\n (func $a)\n (func $b)\n (func $c)\n)")
	if err != nil {
		t.Fatal(err)
	}
	repl := NewList(NewAtom("export"), NewString([]byte("x")), NewList(NewAtom("func"), NewAtom("$a")))
	root.Splice(2, 1, repl.SetLine(root.Children[2].Line))

	want := "(module\n (func $a)\n (export \"x\" (func $a))\n (func $c)\n)\n"
	if got := Format(root); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWalk(t *testing.T) {
	root, err := ParseOne("(a (b c) (d (b e)))")
	if err != nil {
		t.Fatal(err)
	}
	var found []string
	Walk(root, func(n, parent *Node, idx int) bool {
		if n.IsList("b") {
			found = append(found, n.Child(1).Text)
			if parent == nil || parent.Children[idx] != n {
				t.Errorf("parent/index mismatch for %s", n)
			}
		}
		return !n.IsList("d")
	})
	if len(found) != 1 || found[0] != "c" {
		t.Errorf("found = %v, want [c] (d skipped)", found)
	}
}

func TestCloneAndEqual(t *testing.T) {
	root, err := ParseOne("(a (b \"s\") c)")
	if err != nil {
		t.Fatal(err)
	}
	c := root.Clone()
	if !Equal(root, c) {
		t.Fatal("clone differs")
	}
	c.Children[1].Children[0].Text = "z"
	if Equal(root, c) {
		t.Error("mutating the clone changed the original")
	}
}

func TestEscapeUnescape(t *testing.T) {
	data := []byte{'a', '"', '\\', 0x00, 0x7f, 0xff, ' '}
	esc := Escape(data)
	if esc != `a\"\\\00\7f\ff ` {
		t.Errorf("Escape = %q", esc)
	}
	back, err := Unescape(esc)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("Unescape = %v, want %v", back, data)
	}

	named, err := Unescape(`\t\n\r\'\u{1F600}`)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if string(named) != "\t\n\r'\U0001F600" {
		t.Errorf("named escapes = %q", named)
	}

	for _, bad := range []string{`\`, `\zz`, `\u{110000}`, `\ux`} {
		if _, err := Unescape(bad); err == nil {
			t.Errorf("Unescape(%q): expected error", bad)
		}
	}
}
