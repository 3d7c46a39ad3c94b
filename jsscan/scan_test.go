package jsscan

import (
	"strings"
	"testing"
)

const glueSrc = `let wasm;

let cachegetFloat32Memory = null;
function getFloat32Memory() {
    if (cachegetFloat32Memory === null || cachegetFloat32Memory.buffer !== wasm.memory.buffer) {
        cachegetFloat32Memory = new Float32Array(wasm.memory.buffer);
    }
    return cachegetFloat32Memory;
}

const re = /[}{]+/g;
const tpl = ` + "`a ${ {x: 1}.x } b`" + `;

/**
*/
export class Matrix4 {

    static __wrap(ptr) {
        const obj = Object.create(Matrix4.prototype);
        obj.ptr = ptr;
        return obj;
    }

    free() {
        const ptr = this.ptr;
        this.ptr = 0;
        wasm.__wbg_matrix4_free(ptr);
    }
    /**
    * @returns {Float32Array}
    */
    get elements() {
        const retptr = globalArgumentPtr();
        wasm.matrix4_elements(retptr, this.ptr);
        return realRet;
    }
    /**
    * @param {Matrix4} out
    * @param {Matrix4} a
    * @returns {void}
    */
    static copy(out, a) {
        return wasm.matrix4_copy(out.ptr, a.ptr);
    }
}

function init(module) {
    let result;
    return result.then(({instance, module}) => {
        wasm = instance.exports;
        init.__wbindgen_wasm_module = module;
        return wasm;
    });
}

export default init;
`

const declSrc = `/* tslint:disable */
export class Matrix4 {
free(): void;
/**
* @param {Matrix4} out
* @param {Matrix4} a
* @returns {void}
*/
static copy(out: Matrix4, a: Matrix4): void;
/**
* @param {Float32Array} out
* @returns {void}
*/
static identity(out: Float32Array): void;
get elements(): Float32Array;
readonly size: number;
static create(): Matrix4;
}

/**
* If ` + "`module_or_path`" + ` is {RequestInfo}, makes a request.
*/
export default function init (module_or_path: RequestInfo | BufferSource | WebAssembly.Module): Promise<any>;
`

func TestTokenize(t *testing.T) {
	tests := []struct {
		src   string
		kinds []TokenKind
		texts []string
	}{
		{"a / b", []TokenKind{TokIdent, TokPunct, TokIdent}, []string{"a", "/", "b"}},
		{"x = /a\\/b/gi;", []TokenKind{TokIdent, TokPunct, TokRegex, TokPunct}, []string{"x", "=", "/a\\/b/gi", ";"}},
		{"'it\\'s' \"q\"", []TokenKind{TokString, TokString}, []string{"'it\\'s'", "\"q\""}},
		{"1e-5 0x1F .5", []TokenKind{TokNumber, TokNumber, TokNumber}, []string{"1e-5", "0x1F", ".5"}},
		{"return /x/", []TokenKind{TokIdent, TokRegex}, []string{"return", "/x/"}},
		{"`a${`b${c}`}`", []TokenKind{TokTemplate}, []string{"`a${`b${c}`}`"}},
	}
	for _, tt := range tests {
		tokens, _, err := Tokenize(tt.src)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tt.src, err)
		}
		if len(tokens) != len(tt.kinds) {
			t.Fatalf("Tokenize(%q) = %d tokens, want %d: %+v", tt.src, len(tokens), len(tt.kinds), tokens)
		}
		for i, tok := range tokens {
			if tok.Kind != tt.kinds[i] || tok.Text != tt.texts[i] {
				t.Errorf("Tokenize(%q)[%d] = %v %q, want %v %q", tt.src, i, tok.Kind, tok.Text, tt.kinds[i], tt.texts[i])
			}
		}
	}
}

func TestTokenizeComments(t *testing.T) {
	tokens, comments, err := Tokenize("a // one\n/** two */ b")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 || len(comments) != 2 {
		t.Fatalf("tokens=%d comments=%d", len(tokens), len(comments))
	}
	if tokens[1].Line != 2 || comments[1].Text != "/** two */" {
		t.Errorf("unexpected %+v %+v", tokens[1], comments[1])
	}
}

func TestTokenizeErrors(t *testing.T) {
	for _, src := range []string{`"open`, "`open", "/* open", "'a\nb'"} {
		if _, _, err := Tokenize(src); err == nil {
			t.Errorf("Tokenize(%q): expected error", src)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"{", "}", "(]", "class A { foo() { }"} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error", src)
		}
	}
}

func TestParseGlue(t *testing.T) {
	f, err := Parse(glueSrc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(f.Classes) != 1 || f.Classes[0].Name != "Matrix4" || !f.Classes[0].Exported {
		t.Fatalf("classes = %+v", f.Classes)
	}
	c := f.Classes[0]
	var names []string
	for _, m := range c.Members {
		names = append(names, m.Kind.String()+" "+m.Name)
	}
	want := "method __wrap,method free,getter elements,method copy"
	if strings.Join(names, ",") != want {
		t.Errorf("members = %v, want %s", names, want)
	}

	getter := c.Member("elements", MemberGetter)
	if getter == nil || !getter.HasBody() {
		t.Fatal("elements getter not found")
	}
	if ret := getter.Doc.Returns(); ret == nil || ret.Type != "Float32Array" {
		t.Errorf("getter doc returns = %+v", ret)
	}
	if body := getter.Body.Text(f.Src); !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") || !strings.Contains(body, "realRet") {
		t.Errorf("getter body = %q", body)
	}

	copyM := c.Member("copy", MemberMethod)
	if copyM == nil || !copyM.Static || len(copyM.Params) != 2 || copyM.Params[0].Name != "out" {
		t.Fatalf("copy = %+v", copyM)
	}

	fnNames := []string{}
	for _, fn := range f.Functions {
		fnNames = append(fnNames, fn.Name)
	}
	if strings.Join(fnNames, ",") != "getFloat32Memory,init" {
		t.Errorf("functions = %v", fnNames)
	}
	initFn := f.Function("init")
	if initFn.Exported || !initFn.Modifiers.Empty() {
		t.Errorf("init modifiers = %+v", initFn)
	}
	refs := f.IdentsIn(initFn.Body, "init")
	if len(refs) != 1 {
		t.Errorf("self references = %d, want 1", len(refs))
	}
	if got := f.IdentsIn(initFn.Body, "module"); len(got) != 2 {
		t.Errorf("module references = %d, want 2", len(got))
	}

	if spans := f.FindTopLevel("export", "default", "init", ";"); len(spans) != 1 {
		t.Errorf("export default spans = %v", spans)
	}
	if spans := f.FindTopLevel("let", "wasm", ";"); len(spans) != 1 || spans[0].Start != 0 {
		t.Errorf("let wasm spans = %v", spans)
	}
	if spans := f.FindTopLevel("let", "result", ";"); len(spans) != 0 {
		t.Errorf("nested statement matched at top level: %v", spans)
	}
}

func TestParseDeclarations(t *testing.T) {
	f, err := Parse(declSrc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := f.Class("Matrix4")
	if c == nil {
		t.Fatal("Matrix4 not found")
	}

	tests := []struct {
		name   string
		kind   MemberKind
		static bool
		ret    string
	}{
		{"free", MemberMethod, false, "void"},
		{"copy", MemberMethod, true, "void"},
		{"identity", MemberMethod, true, "void"},
		{"elements", MemberGetter, false, "Float32Array"},
		{"size", MemberField, false, "number"},
		{"create", MemberMethod, true, "Matrix4"},
	}
	if len(c.Members) != len(tests) {
		t.Fatalf("members = %d, want %d", len(c.Members), len(tests))
	}
	for i, tt := range tests {
		m := c.Members[i]
		if m.Name != tt.name || m.Kind != tt.kind || m.Static != tt.static || m.ReturnType != tt.ret {
			t.Errorf("member %d = %s %v static=%v ret=%q, want %s %v %v %q",
				i, m.Name, m.Kind, m.Static, m.ReturnType, tt.name, tt.kind, tt.static, tt.ret)
		}
		if m.HasBody() {
			t.Errorf("%s: declaration has body", m.Name)
		}
		if !strings.HasSuffix(m.Span.Text(f.Src), ";") {
			t.Errorf("%s: span %q does not end at semicolon", m.Name, m.Span.Text(f.Src))
		}
	}

	copyM := c.Members[1]
	if copyM.Params[0].Type != "Matrix4" || copyM.Params[1].Name != "a" {
		t.Errorf("copy params = %+v", copyM.Params)
	}
	if got := copyM.ReturnSpan.Text(f.Src); got != "void" {
		t.Errorf("copy return span = %q", got)
	}

	initFn := f.Function("init")
	if initFn == nil || !initFn.Exported || !initFn.Default || initFn.HasBody() {
		t.Fatalf("init = %+v", initFn)
	}
	if initFn.ReturnType != "Promise<any>" {
		t.Errorf("init return = %q", initFn.ReturnType)
	}
	if len(initFn.Params) != 1 || initFn.Params[0].Type != "RequestInfo | BufferSource | WebAssembly.Module" {
		t.Errorf("init params = %+v", initFn.Params)
	}
	if !strings.HasSuffix(initFn.Span.Text(f.Src), "Promise<any>;") || !strings.HasPrefix(initFn.Span.Text(f.Src), "export default") {
		t.Errorf("init span = %q", initFn.Span.Text(f.Src))
	}
}

func TestOutParams(t *testing.T) {
	f, err := Parse(declSrc)
	if err != nil {
		t.Fatal(err)
	}
	ops := OutParams(f.Class("Matrix4"))
	if len(ops) != 2 {
		t.Fatalf("out params = %d, want 2", len(ops))
	}
	if ops[0].Member.Name != "copy" || ops[0].Type != "Matrix4" {
		t.Errorf("first = %s %s", ops[0].Member.Name, ops[0].Type)
	}
	if ops[1].Member.Name != "identity" || ops[1].Type != "Float32Array" {
		t.Errorf("second = %s %s", ops[1].Member.Name, ops[1].Type)
	}
	if got := ops[0].Ret.TypeSpan.Text(f.Src); got != "void" {
		t.Errorf("returns type span = %q", got)
	}
}

func TestStatements(t *testing.T) {
	src := `function f(out) {
    const a = 1;
    if (a) {
        g();
    } else if (b) {
        h();
    } else {
        k();
    }
    try {
        return wasm.f(out);
    } finally {
        out.set(x);
    }
    do { i++; } while (i < 3);
    for (let i = 0; i < 3; i++) g(i);
}`
	f, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	stmts, err := f.Statements(f.Function("f").Body)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"const a", "if (a)", "try {", "do {", "for (let"}
	if len(stmts) != len(want) {
		for _, s := range stmts {
			t.Logf("stmt: %q", s.Text(src))
		}
		t.Fatalf("statements = %d, want %d", len(stmts), len(want))
	}
	for i, s := range stmts {
		if !strings.HasPrefix(s.Text(src), want[i]) {
			t.Errorf("stmt %d = %q", i, s.Text(src))
		}
	}
	if last := stmts[len(stmts)-1].Text(src); !strings.HasSuffix(last, "g(i);") {
		t.Errorf("last = %q", last)
	}
	if indent := LineIndent(src, stmts[1].Start); indent != "    " {
		t.Errorf("indent = %q", indent)
	}
}

func TestParseDoc(t *testing.T) {
	text := "/**\n* @param {Array<{a: number}>} out the target\n* @param {number} [count]\n* @returns {void}\n*/"
	d := ParseDoc(text, 100)
	if len(d.Tags) != 3 {
		t.Fatalf("tags = %+v", d.Tags)
	}
	out := d.Param("out")
	if out == nil || out.Type != "Array<{a: number}>" {
		t.Fatalf("out = %+v", out)
	}
	if got := text[out.TypeSpan.Start-100 : out.TypeSpan.End-100]; got != out.Type {
		t.Errorf("type span text = %q", got)
	}
	if d.Param("count") == nil {
		t.Error("optional param not found")
	}
	if ret := d.Returns(); ret == nil || ret.Type != "void" {
		t.Errorf("returns = %+v", ret)
	}
	var nilDoc *Doc
	if nilDoc.Param("out") != nil || nilDoc.Returns() != nil {
		t.Error("nil doc returned tags")
	}
}

func TestPatch(t *testing.T) {
	src := "abcdef"
	var p Patch
	p.Replace(Span{4, 5}, "E")
	p.Insert(0, ">")
	p.Delete(Span{1, 3})
	p.Insert(6, "!")
	got, err := p.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if got != ">adEf!" {
		t.Errorf("Apply = %q", got)
	}

	var bad Patch
	bad.Replace(Span{0, 3}, "x")
	bad.Replace(Span{2, 4}, "y")
	if _, err := bad.Apply(src); err == nil {
		t.Error("expected overlap error")
	}
}

func TestWholeLines(t *testing.T) {
	src := "a;\n  export default init;\nb;"
	start := strings.Index(src, "export")
	s := WholeLines(src, Span{start, start + len("export default init;")})
	if got := src[:s.Start] + src[s.End:]; got != "a;\nb;" {
		t.Errorf("after delete = %q", got)
	}

	inline := "x; export default init;"
	s2 := WholeLines(inline, Span{3, len(inline)})
	if s2.Start != 3 {
		t.Errorf("widened a shared line: %+v", s2)
	}
}

func TestSortRefs(t *testing.T) {
	refs := []MethodRef{{"Vector3", "add", "Vector3"}, {"Matrix4", "copy", "Matrix4"}, {"Matrix4", "add", "Matrix4"}}
	SortRefs(refs)
	if refs[0].Key() != "Matrix4.add" || refs[2].Key() != "Vector3.add" {
		t.Errorf("sorted = %v", refs)
	}
	if refs[1].String() != "Matrix4.copy: Matrix4" {
		t.Errorf("String = %q", refs[1].String())
	}
}
