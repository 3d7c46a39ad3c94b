package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which pipeline stage produced the error
type Phase string

const (
	PhaseConfig       Phase = "config"       // configuration and metadata
	PhaseRead         Phase = "read"         // loading input artifacts
	PhaseCompat       Phase = "compat"       // generator compatibility check
	PhaseOptimize     Phase = "optimize"     // binary parse and canonicalization
	PhaseRoundTrip    Phase = "roundtrip"    // text edit and re-emission
	PhaseDeclarations Phase = "declarations" // type declaration rewrite
	PhaseGlue         Phase = "glue"         // glue module rewrite
	PhaseVerify       Phase = "verify"       // cross-artifact consistency
	PhaseEmit         Phase = "emit"         // variant assembly
	PhaseWrite        Phase = "write"        // staging and committing outputs
	PhaseParse        Phase = "parse"        // text form parsing
)

// Kind categorizes the error
type Kind string

const (
	KindIOFailure              Kind = "io_failure"
	KindRoundTripFailure       Kind = "roundtrip_failure"
	KindRequiredPatternMissing Kind = "required_pattern_missing"
	KindOptionalPatternMissing Kind = "optional_pattern_missing"
	KindInconsistent           Kind = "inconsistent"
	KindIncompatibleGenerator  Kind = "incompatible_generator"
	KindInvalidInput           Kind = "invalid_input"
	KindUnsupported            Kind = "unsupported"
)

// Error is the structured error type used throughout bindpost
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Artifact string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Artifact != "" {
		b.WriteString(" in ")
		b.WriteString(e.Artifact)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Fatal reports whether the error must abort the pipeline.
// Only a missing optional pattern is survivable.
func (e *Error) Fatal() bool {
	return e.Kind != KindOptionalPatternMissing
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Artifact sets the artifact the error refers to
func (b *Builder) Artifact(name string) *Builder {
	b.err.Artifact = name
	return b
}

// Path sets the structural path (class, member, function)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the pipeline taxonomy

// IO creates an I/O failure for an artifact
func IO(phase Phase, artifact string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindIOFailure,
		Artifact: artifact,
		Cause:    cause,
	}
}

// RoundTrip creates a round-trip failure
func RoundTrip(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRoundTrip,
		Kind:   KindRoundTripFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// RequiredPatternMissing creates a missing required edit error
func RequiredPatternMissing(phase Phase, artifact, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindRequiredPatternMissing,
		Artifact: artifact,
		Detail:   fmt.Sprintf("no %s found", what),
	}
}

// OptionalPatternMissing creates a non-fatal missing cleanup error
func OptionalPatternMissing(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOptionalPatternMissing,
		Detail: fmt.Sprintf("no %s found", what),
	}
}

// Inconsistent creates an error for artifacts that disagree after editing
func Inconsistent(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInconsistent,
		Path:   path,
		Detail: detail,
	}
}

// IncompatibleGenerator creates an error for an unrecognized generator version
func IncompatibleGenerator(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompat,
		Kind:   KindIncompatibleGenerator,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether any *Error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}
