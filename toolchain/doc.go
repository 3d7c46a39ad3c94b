// Package toolchain is the module optimizer and serializer contract.
//
// A Toolchain parses a binary module or its text form into an IR, which
// can be optimized and emitted again as text or binary. Two
// implementations exist:
//
//   - Native runs in process. Text is produced by wat.Print and read back
//     with wat.Compile; Optimize at level 0 canonicalizes function bodies
//     (nop removal, dead code after unconditional transfers).
//   - Binaryen shells out to wasm-opt, wasm-dis and wasm-as.
//
// Usage:
//
//	tc, err := toolchain.New("native", "")
//	ir, err := tc.Parse(ctx, bin)
//	err = ir.Optimize(ctx, toolchain.Options{})
//	text, err := ir.EmitText(ctx)
package toolchain
