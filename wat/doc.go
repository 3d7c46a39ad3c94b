// Package wat prints and assembles the WebAssembly text format.
//
// Print renders a decoded module as flat, symbolically named text. Compile
// goes the other way: text is split by the sexpr tokenizer, parsed into an
// AST and encoded. The two are inverse for the supported feature set:
// printing a module and compiling the result reproduces the original
// binary, less its custom sections.
//
//	text, err := wat.Print(mod)
//	bin, err := wat.Compile(text)
//
// Supported:
//   - Functions with params, results, locals (named and indexed)
//   - Flat and folded instructions, including legacy get_local style names
//   - Control flow: block, loop, if/then/else, br, br_if, br_table, return
//   - Memory, global, table declarations with imports and exports
//   - Bulk memory, table operations, reference types, saturating truncation
//   - Data and elem segments (active, passive, declarative)
//
// Not supported: SIMD, threads, exception handling and GC types.
package wat
