package parser

import (
	"strings"
	"testing"

	"github.com/wippyai/bindpost/wat/internal/ast"
	"github.com/wippyai/bindpost/wat/sexpr"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	tokens, err := sexpr.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	mod, err := New(tokens).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return mod
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	tokens, err := sexpr.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	_, err = New(tokens).Parse()
	if err == nil {
		t.Fatalf("expected error for %s", src)
	}
	return err
}

func TestParseEmptyModule(t *testing.T) {
	mod := parse(t, "(module $name)")
	if len(mod.Types) != 0 || len(mod.Funcs) != 0 {
		t.Errorf("types=%d funcs=%d, want empty", len(mod.Types), len(mod.Funcs))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		atom string
		want tokenType
	}{
		{"42", tokNumber},
		{"-1", tokNumber},
		{"+0x10", tokNumber},
		{"1.5e3", tokNumber},
		{"inf", tokIdent},
		{"-nan:0x1", tokIdent},
		{"$label$0", tokIdent},
		{"i32.add", tokIdent},
		{"offset=4", tokIdent},
	}
	for _, tt := range tests {
		t.Run(tt.atom, func(t *testing.T) {
			if got := classify(sexpr.Token{Value: tt.atom, Type: sexpr.Atom}); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.atom, got, tt.want)
			}
		})
	}
}

func TestParseFunc(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		numParams  int
		numResults int
	}{
		{"empty_func", "(module (func))", 0, 0},
		{"func_with_param", "(module (func (param i32)))", 1, 0},
		{"func_with_result", "(module (func (result i32) (i32.const 0)))", 0, 1},
		{"func_with_params_results", "(module (func (param i32 i64) (result f32 f64) (f32.const 0) (f64.const 0)))", 2, 2},
		{"func_with_name", "(module (func $add (param i32 i32) (result i32) (i32.add (local.get 0) (local.get 1))))", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := parse(t, tt.input)
			if len(mod.Types) != 1 || len(mod.Funcs) != 1 {
				t.Fatalf("types=%d funcs=%d, want 1 and 1", len(mod.Types), len(mod.Funcs))
			}
			ft := mod.Types[mod.Funcs[0].TypeIdx]
			if len(ft.Params) != tt.numParams {
				t.Errorf("params = %d, want %d", len(ft.Params), tt.numParams)
			}
			if len(ft.Results) != tt.numResults {
				t.Errorf("results = %d, want %d", len(ft.Results), tt.numResults)
			}
		})
	}
}

func TestParseTypeUseNamesParams(t *testing.T) {
	mod := parse(t, `(module
		(type $t0 (func (param i32 i32) (result i32)))
		(func $f (type $t0) (param $a i32) (param $b i32) (result i32)
			(local $tmp i32)
			local.get $b
			local.set $tmp
			local.get $tmp))`)

	if len(mod.Types) != 1 {
		t.Fatalf("types = %d, want 1", len(mod.Types))
	}
	if len(mod.Types[0].Params) != 2 {
		t.Errorf("params = %d, want 2", len(mod.Types[0].Params))
	}
	code := mod.Code[0].Code
	want := []ast.Instr{
		{Opcode: ast.OpLocalGet, Imm: uint32(1)},
		{Opcode: ast.OpLocalSet, Imm: uint32(2)},
		{Opcode: ast.OpLocalGet, Imm: uint32(2)},
		{Opcode: ast.OpEnd},
	}
	if len(code) != len(want) {
		t.Fatalf("code = %+v, want %+v", code, want)
	}
	for i := range want {
		if code[i].Opcode != want[i].Opcode || code[i].Imm != want[i].Imm {
			t.Errorf("instr %d = %+v, want %+v", i, code[i], want[i])
		}
	}
}

func TestParseTypeUseMismatch(t *testing.T) {
	err := parseErr(t, `(module
		(type $t0 (func (param i32 i32)))
		(func (type $t0) (param $a i32)))`)
	if !strings.Contains(err.Error(), "param") {
		t.Errorf("error %q does not mention params", err)
	}
}

func TestParseTypesKeepDeclarationOrder(t *testing.T) {
	mod := parse(t, `(module
		(type $t0 (func))
		(type $t1 (func (param i32)))
		(type $t2 (func (result f64)))
		(func $a (type $t2) (f64.const 0))
		(func $b (param i64)))`)

	if len(mod.Types) != 4 {
		t.Fatalf("types = %d, want 4", len(mod.Types))
	}
	if mod.Funcs[0].TypeIdx != 2 {
		t.Errorf("func $a type = %d, want 2", mod.Funcs[0].TypeIdx)
	}
	// Implicit signatures follow the declared ones.
	if mod.Funcs[1].TypeIdx != 3 {
		t.Errorf("func $b type = %d, want 3", mod.Funcs[1].TypeIdx)
	}
}

func TestParseLegacyNames(t *testing.T) {
	mod := parse(t, `(module
		(global $g (mut i32) (i32.const 0))
		(func (param i32) (local i32)
			get_local 0
			tee_local 1
			set_local 0
			get_global $g
			set_global $g))`)

	var got []byte
	for _, in := range mod.Code[0].Code {
		got = append(got, in.Opcode)
	}
	want := []byte{0x20, 0x22, 0x21, 0x23, 0x24, ast.OpEnd}
	if string(got) != string(want) {
		t.Errorf("opcodes = %x, want %x", got, want)
	}
}

func TestParseElemModes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		mode  int
		table uint32
	}{
		{"active", "(module (table 1 funcref) (func $a) (elem (i32.const 0) $a))", ast.ElemModeActive, 0},
		{"explicit_table", "(module (table $T 1 funcref) (func $a) (elem (table $T) (i32.const 0) func $a))", ast.ElemModeActiveTable, 0},
		{"second_table", "(module (table 1 funcref) (table $U 1 funcref) (func $a) (elem (table $U) (i32.const 0) func $a))", ast.ElemModeActiveTable, 1},
		{"passive", "(module (func $a) (elem func $a))", ast.ElemModePassive, 0},
		{"declare", "(module (func $a) (elem declare func $a))", ast.ElemModeDeclarative, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := parse(t, tt.input)
			if len(mod.Elems) != 1 {
				t.Fatalf("elems = %d, want 1", len(mod.Elems))
			}
			e := mod.Elems[0]
			if e.Mode != tt.mode || e.TableIdx != tt.table {
				t.Errorf("mode=%d table=%d, want %d and %d", e.Mode, e.TableIdx, tt.mode, tt.table)
			}
			if len(e.Init) != 1 || e.Init[0] != 0 {
				t.Errorf("init = %v, want [0]", e.Init)
			}
		})
	}
}

func TestParseData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		passive  bool
		explicit bool
		init     string
	}{
		{"active", `(module (memory 1) (data (i32.const 0) "hi"))`, false, false, "hi"},
		{"explicit_memory", `(module (memory $m 1) (data (memory $m) (i32.const 8) "a\62" "c"))`, false, true, "abc"},
		{"passive", `(module (data "\00\ff"))`, true, false, "\x00\xff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := parse(t, tt.input)
			if len(mod.Data) != 1 {
				t.Fatalf("data = %d, want 1", len(mod.Data))
			}
			d := mod.Data[0]
			if d.Passive != tt.passive || d.ExplicitMem != tt.explicit {
				t.Errorf("passive=%v explicit=%v, want %v and %v", d.Passive, d.ExplicitMem, tt.passive, tt.explicit)
			}
			if string(d.Init) != tt.init {
				t.Errorf("init = %q, want %q", d.Init, tt.init)
			}
		})
	}
}

func TestParseNeedsDataCount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"no_bulk_ops", `(module (memory 1) (data (i32.const 0) "x") (func))`, false},
		{"data_drop", `(module (memory 1) (data (i32.const 0) "x") (func data.drop 0))`, true},
		{"memory_init", `(module (memory 1) (data $d "x") (func (memory.init $d (i32.const 0) (i32.const 0) (i32.const 1))))`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(t, tt.input).NeedsDataCount; got != tt.want {
				t.Errorf("NeedsDataCount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseImportExportNames(t *testing.T) {
	mod := parse(t, `(module
		(import "./m\2ejs" "__wbg_x" (func $x (param i32)))
		(func (export "a\tb") (call $x (i32.const 1))))`)

	if len(mod.Imports) != 1 || mod.Imports[0].Module != "./m.js" {
		t.Fatalf("imports = %+v", mod.Imports)
	}
	if len(mod.Exports) != 1 || mod.Exports[0].Name != "a\tb" || mod.Exports[0].Idx != 1 {
		t.Errorf("exports = %+v", mod.Exports)
	}
}

func TestParseMemarg(t *testing.T) {
	mod := parse(t, `(module (memory 1) (func (param i32) (result f32)
		local.get 0
		f32.load offset=4 align=2))`)

	var load *ast.Instr
	for i := range mod.Code[0].Code {
		if mod.Code[0].Code[i].Opcode == 0x2A {
			load = &mod.Code[0].Code[i]
		}
	}
	if load == nil {
		t.Fatal("f32.load not found")
	}
	want := ast.Memarg{Align: 1, Offset: 4}
	if ma, ok := load.Imm.(ast.Memarg); !ok || ma != want {
		t.Errorf("memarg = %+v, want %+v", load.Imm, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"not_module", "(func)", "expected 'module'"},
		{"trailing", "(module) (module)", "after module"},
		{"unknown_type", "(module (func (param bogus)))", "unknown value type"},
		{"unknown_ident", "(module (func call $nope))", "unknown identifier"},
		{"unknown_label", "(module (func (block (br $x))))", "unknown label"},
		{"stray_end", "(module (func end))", "without matching block"},
		{"bad_align", "(module (memory 1) (func (drop (i32.load align=3 (i32.const 0)))))", "power of two"},
		{"i32_range", "(module (func (drop (i32.const 4294967296))))", "out of range"},
		{"import_after_def", `(module (func) (import "m" "f" (func)))`, "import after definition"},
		{"type_out_of_range", "(module (func (type 3)))", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErr(t, tt.input)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}
