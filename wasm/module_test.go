package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/bindpost/wasm"
)

// sampleModule mirrors the shape of a wasm-bindgen output: a memory,
// a stack pointer global, a table for indirect calls and a few exports.
func sampleModule() *wasm.Module {
	max := uint32(9)
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}},
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValF32}},
		},
		Imports: []wasm.Import{
			{Module: "./gl_matrix_wasm", Name: "__wbindgen_throw", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs:    []uint32{0, 1},
		Tables:   []wasm.TableType{{ElemType: wasm.ValFuncRef, Limits: wasm.Limits{Min: 9, Max: &max}}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 17}}},
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}, Init: []byte{wasm.OpI32Const, 0x80, 0x80, 0x04, wasm.OpEnd}},
		},
		Exports: []wasm.Export{
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
			{Name: "matrix4_elements", Kind: wasm.KindFunc, Idx: 1},
			{Name: "vector3_x", Kind: wasm.KindFunc, Idx: 2},
		},
		Elements: []wasm.Element{
			{Flags: 0, Offset: []byte{wasm.OpI32Const, 1, wasm.OpEnd}, FuncIdxs: []uint32{1, 2}},
		},
		Code: []wasm.FuncBody{
			{Code: []byte{wasm.OpUnreachable, wasm.OpEnd}},
			{
				Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}},
				Code: []byte{
					wasm.OpLocalGet, 0,
					0x2A, 0x02, 0x00, // f32.load align=2 offset=0
					wasm.OpEnd,
				},
			},
		},
		Data: []wasm.DataSegment{
			{Offset: []byte{wasm.OpI32Const, 8, wasm.OpEnd}, Init: []byte("hello")},
		},
		CustomSections: []wasm.CustomSection{{Name: "extra", Data: []byte{1, 2, 3}}},
	}
}

func TestModuleRoundTrip(t *testing.T) {
	m := sampleModule()
	data := m.Encode()

	if !bytes.Equal(data[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		t.Fatal("invalid magic number")
	}

	parsed, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	if len(parsed.Types) != 2 || !parsed.Types[1].Equal(m.Types[1]) {
		t.Errorf("types mismatch: %+v", parsed.Types)
	}
	if len(parsed.Imports) != 1 || parsed.Imports[0].Name != "__wbindgen_throw" {
		t.Errorf("imports mismatch: %+v", parsed.Imports)
	}
	if parsed.Tables[0].Limits.Max == nil || *parsed.Tables[0].Limits.Max != 9 {
		t.Error("table max lost")
	}
	if parsed.Memories[0].Limits.Min != 17 {
		t.Errorf("memory min = %d", parsed.Memories[0].Limits.Min)
	}
	if !bytes.Equal(parsed.Globals[0].Init, m.Globals[0].Init) {
		t.Errorf("global init = %x", parsed.Globals[0].Init)
	}
	if len(parsed.Elements) != 1 || len(parsed.Elements[0].FuncIdxs) != 2 {
		t.Errorf("elements mismatch: %+v", parsed.Elements)
	}
	if string(parsed.Data[0].Init) != "hello" {
		t.Errorf("data = %q", parsed.Data[0].Init)
	}
	if cs, ok := parsed.CustomSection("extra"); !ok || !bytes.Equal(cs.Data, []byte{1, 2, 3}) {
		t.Error("custom section lost")
	}

	if !bytes.Equal(parsed.Encode(), data) {
		t.Error("re-encoding is not byte-identical")
	}
}

func TestParseModuleErrors(t *testing.T) {
	if _, err := wasm.ParseModule([]byte{1, 2, 3, 4, 1, 0, 0, 0}); !errors.Is(err, wasm.ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
	if _, err := wasm.ParseModule([]byte{0, 'a', 's', 'm', 2, 0, 0, 0}); !errors.Is(err, wasm.ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", err)
	}

	// Truncated section body
	data := sampleModule().Encode()
	if _, err := wasm.ParseModule(data[:len(data)-3]); err == nil {
		t.Error("expected error for truncated module")
	}

	// Sections out of order: memory (5) before type (1)
	bad := []byte{0, 'a', 's', 'm', 1, 0, 0, 0,
		wasm.SectionMemory, 3, 1, 0, 1,
		wasm.SectionType, 1, 0,
	}
	if _, err := wasm.ParseModule(bad); err == nil {
		t.Error("expected ordering error")
	}
}

func TestGetFuncType(t *testing.T) {
	m := sampleModule()

	imported := m.GetFuncType(0)
	if imported == nil || len(imported.Params) != 2 {
		t.Fatalf("imported type = %+v", imported)
	}
	local := m.GetFuncType(2)
	if local == nil || len(local.Results) != 1 || local.Results[0] != wasm.ValF32 {
		t.Fatalf("local type = %+v", local)
	}
	if m.GetFuncType(3) != nil {
		t.Error("expected nil for out of range function")
	}
}

func TestAddTypeDeduplicates(t *testing.T) {
	m := sampleModule()
	idx := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValF32}})
	if idx != 1 {
		t.Errorf("AddType reused index = %d, want 1", idx)
	}
	idx = m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI64}})
	if idx != 2 || len(m.Types) != 3 {
		t.Errorf("AddType new index = %d (types %d)", idx, len(m.Types))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *wasm.Module)
	}{
		{"bad type index", func(m *wasm.Module) { m.Funcs[0] = 7 }},
		{"missing body", func(m *wasm.Module) { m.Code = m.Code[:1] }},
		{"bad export", func(m *wasm.Module) { m.Exports[1].Idx = 10 }},
		{"duplicate export", func(m *wasm.Module) { m.Exports[2].Name = "memory" }},
		{"bad element func", func(m *wasm.Module) { m.Elements[0].FuncIdxs[0] = 40 }},
		{"bad start", func(m *wasm.Module) { s := uint32(12); m.Start = &s }},
	}

	if err := sampleModule().Validate(); err != nil {
		t.Fatalf("valid module rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleModule()
			tt.mutate(m)
			if err := m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStripCustomSections(t *testing.T) {
	m := sampleModule()
	m.CustomSections = append(m.CustomSections, wasm.CustomSection{Name: "producers"})
	n := m.StripCustomSections(func(name string) bool { return name != "producers" })
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if len(m.CustomSections) != 1 || m.CustomSections[0].Name != "producers" {
		t.Errorf("remaining = %+v", m.CustomSections)
	}
}
