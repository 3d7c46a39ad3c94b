// Package errors provides structured error types for the bindpost pipeline.
//
// Errors are categorized by Phase (which pipeline stage failed) and Kind
// (the failure taxonomy). The Error type carries the artifact name, a
// structural path such as class and member, a detail message and a cause
// chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseGlue, errors.KindRequiredPatternMissing).
//		Artifact("gl_matrix_wasm.js").
//		Path("Matrix4", "elements").
//		Detail("accessor body not found").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.IO(errors.PhaseRead, path, cause)
//	err := errors.RoundTrip("reparse edited module text", cause)
//
// Every kind except KindOptionalPatternMissing is fatal: the pipeline stops
// before writing any artifact. All errors implement the standard error
// interface and support errors.Is/As.
package errors
