// Package wasm provides WebAssembly binary format parsing and encoding.
//
// The package covers the core module format as produced by wasm-bindgen and
// similar toolchains: WebAssembly 1.0 plus sign extension, saturating
// truncation, bulk memory, reference types and multi-value signatures.
//
// # Parsing and Encoding
//
//	module, err := wasm.ParseModule(data)
//	if err != nil {
//	    return err
//	}
//	encoded := module.Encode()
//
// Custom sections are preserved and written after all known sections.
//
// # Instructions
//
// Function bodies stay as raw bytes on the module. Decode them on demand:
//
//	instrs, err := wasm.DecodeInstructions(module.Code[0].Code)
//	code := wasm.EncodeInstructions(instrs)
//
// Every opcode is described by a single table (see LookupOpcode, LookupMisc
// and LookupName) that also drives the text printer and assembler in
// package wat.
//
// # Custom Sections
//
// ParseNames decodes the "name" section into function and local names.
// ParseProducers decodes the "producers" section, which records the tools
// that produced the binary:
//
//	p, ok, err := module.ParseProducers()
//	version, found := p.Lookup("processed-by", "wasm-bindgen")
package wasm
