package wasm_test

import (
	"testing"

	"github.com/wippyai/bindpost/wasm"
)

func TestNamesRoundTrip(t *testing.T) {
	names := &wasm.Names{
		Module: "gl_matrix_wasm",
		Funcs:  map[uint32]string{0: "__wbindgen_throw", 2: "matrix4_elements"},
		Locals: map[uint32]map[uint32]string{2: {0: "self", 1: "out"}},
	}

	m := sampleModule()
	m.CustomSections = append(m.CustomSections, wasm.CustomSection{Name: wasm.CustomSectionName, Data: names.Encode()})

	parsed, err := wasm.ParseModule(m.Encode())
	if err != nil {
		t.Fatal(err)
	}
	got, err := parsed.ParseNames()
	if err != nil {
		t.Fatalf("ParseNames: %v", err)
	}

	if got.Module != "gl_matrix_wasm" {
		t.Errorf("module name = %q", got.Module)
	}
	if got.Funcs[2] != "matrix4_elements" || got.Funcs[0] != "__wbindgen_throw" {
		t.Errorf("func names = %v", got.Funcs)
	}
	if got.Locals[2][1] != "out" {
		t.Errorf("local names = %v", got.Locals)
	}
}

func TestParseNamesAbsent(t *testing.T) {
	n, err := sampleModule().ParseNames()
	if err != nil {
		t.Fatal(err)
	}
	if !n.Empty() {
		t.Errorf("expected empty names, got %+v", n)
	}
}

func TestProducers(t *testing.T) {
	p := wasm.Producers{
		"language":     {{Name: "Rust", Version: ""}},
		"processed-by": {{Name: "rustc", Version: "1.33.0"}, {Name: "wasm-bindgen", Version: "0.2.33 (5ab9ec1cb)"}},
	}
	m := sampleModule()
	m.CustomSections = append(m.CustomSections, wasm.CustomSection{
		Name: wasm.CustomSectionProducers,
		Data: wasm.EncodeProducers([]string{"language", "processed-by"}, p),
	})

	got, ok, err := m.ParseProducers()
	if err != nil || !ok {
		t.Fatalf("ParseProducers: ok=%v err=%v", ok, err)
	}
	v, found := got.Lookup("processed-by", "wasm-bindgen")
	if !found || v != "0.2.33 (5ab9ec1cb)" {
		t.Errorf("wasm-bindgen version = %q, %v", v, found)
	}
	if _, found := got.Lookup("language", "wasm-bindgen"); found {
		t.Error("lookup matched the wrong field")
	}

	if _, ok, _ := sampleModule().ParseProducers(); ok {
		t.Error("expected no producers section")
	}
}

func TestProducersMalformed(t *testing.T) {
	m := &wasm.Module{CustomSections: []wasm.CustomSection{{Name: wasm.CustomSectionProducers, Data: []byte{1, 5, 'a'}}}}
	if _, ok, err := m.ParseProducers(); !ok || err == nil {
		t.Errorf("expected parse error, got ok=%v err=%v", ok, err)
	}
}
