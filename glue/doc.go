// Package glue rewrites the generated JS glue module and emits its
// distributable variants.
//
// Rewrite makes three kinds of edits:
//
//   - The body of every "get elements()" in a class listed in the offset
//     table is replaced by a direct read of linear memory:
//
//     const ptr = this.ptr / 4 + 1;
//     return new Float32Array(wasm.memory.buffer).slice(ptr, ptr + N);
//
//   - The generated loader "function init(module)" becomes initModule,
//     including references to itself, and "export default init;" is
//     removed.
//
//   - Static output-parameter methods return their out argument.
//
// The rewritten text is then emitted as the Inlined variant, which embeds
// the binary and exports an async init, or the Split variant, which
// imports the wasm exports from a sibling module in place of the
// top-level "let wasm;".
package glue
