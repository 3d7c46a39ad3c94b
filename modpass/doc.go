// Package modpass strips generated accessor code from a bindgen module.
//
// Transform takes the compiled module through a toolchain round trip:
//
//  1. Parse and canonicalize (optimizer knobs at zero).
//  2. Emit the text form and parse it into an s-expression tree.
//  3. Rewrite the bounds-check branch idiom
//     (br_if L (i32.eq (local.tee $x (i32.load ...)) (i32.const -1)))
//     into a plain local.set. Both folded and flat layouts are matched.
//     Finding none is logged, not an error.
//  4. Delete func exports whose name ends in "_elements".
//  5. Delete the "_elements" stub functions: two i32 parameters, body a
//     single unreachable. A stub still referenced from elsewhere is kept
//     and a warning logged.
//  6. Reparse the edited text and emit a binary.
//
// The final binary is compiled with wazero before it is returned; a
// module that fails to compile, still exports a stub, or lacks a
// "memory" export is a round-trip error.
//
// The edits are keyed on node shape, not on layout, so the text can come
// from either toolchain. Transform over its own output makes no edits.
package modpass
