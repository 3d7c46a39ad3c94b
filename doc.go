// Package bindpost post-processes the bindings package emitted by a
// Rust-to-WebAssembly bindings generator for a matrix and vector math
// library.
//
// A run rewrites four artifacts of the package directory in place and
// adds two more:
//
//	<name>_bg.wasm    module with dead constant-false branches folded and
//	                  the per-class element accessor stubs removed
//	<name>_bg.wast    text form of the same module
//	<name>.js         glue with the module bytes inlined and accessors
//	                  reading linear memory directly
//	<name>.split.js   same glue importing the module instead
//	<name>.d.ts       declarations with readonly accessors, a narrowed
//	                  init and out-parameter methods returning their type
//	<name>_bg.d.ts    header prefixed
//
// # Packages
//
//	bindpost/
//	├── pipeline/    Orchestration, consistency check and atomic commit
//	├── config/      bindpost.yaml and the license banner
//	├── compat/      Generator version contract
//	├── modpass/     Module transformation
//	├── toolchain/   Parse, optimize and print backends
//	├── decl/        Declaration rewriting
//	├── glue/        Glue rewriting and variant emission
//	├── jsscan/      Lexical scanner shared by the rewriters
//	├── offsets/     Class to lane-count table
//	├── wasm/        Core binary model
//	├── wat/         Text format assembler
//	└── errors/      Structured error types
//
// # Quick Start
//
//	report, err := bindpost.RunDir(ctx, ".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
//
// Every input is read before anything is written and all outputs are
// committed together, so a failed run leaves the package untouched.
package bindpost
