package modpass

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/toolchain"
	"github.com/wippyai/bindpost/wat/sexpr"
)

// StubSuffix marks the generated accessor stubs and their exports.
const StubSuffix = "_elements"

// Stats summarizes the edits made by one Transform run.
type Stats struct {
	DeadBranches   int
	StubsRemoved   int
	StubsKept      int
	ExportsRemoved int
	InputSize      int
	OutputSize     int
}

// Changed reports whether any edit was applied to the module text.
func (s Stats) Changed() bool {
	return s.DeadBranches+s.StubsRemoved+s.ExportsRemoved > 0
}

// Result is the output of Transform.
type Result struct {
	Binary []byte
	// Text is the edited module text, kept for inspection.
	Text  string
	Stats Stats
}

// Transform canonicalizes bin, applies the structural edits to its text
// form and re-emits a binary. The optimizer runs with every knob at zero.
func Transform(ctx context.Context, tc toolchain.Toolchain, bin []byte) (*Result, error) {
	return TransformWithOptions(ctx, tc, bin, toolchain.Options{})
}

// TransformWithOptions is Transform with explicit optimizer options.
func TransformWithOptions(ctx context.Context, tc toolchain.Toolchain, bin []byte, opts toolchain.Options) (*Result, error) {
	log := Logger().With(zap.String("toolchain", tc.Name()))

	ir, err := tc.Parse(ctx, bin)
	if err != nil {
		return nil, err
	}
	if err := ir.Optimize(ctx, opts); err != nil {
		return nil, err
	}
	text, err := ir.EmitText(ctx)
	if err != nil {
		return nil, err
	}

	root, err := sexpr.ParseOne(text)
	if err != nil {
		return nil, errors.RoundTrip("parse emitted module text", err)
	}
	if !root.IsList("module") {
		return nil, errors.RoundTrip("emitted text is not a module", nil)
	}

	stats := Stats{InputSize: len(bin)}
	stats.DeadBranches = removeDeadBranches(root)
	if stats.DeadBranches == 0 {
		log.Info("dead-branch cleanup skipped",
			zap.Error(errors.OptionalPatternMissing(errors.PhaseRoundTrip, "bounds-check branch on -1 sentinel")))
	}
	stats.ExportsRemoved = removeStubExports(root)
	stats.StubsRemoved, stats.StubsKept = removeStubs(root, log)

	edited := text
	if stats.Changed() {
		edited = sexpr.Format(root)
	}

	out, err := tc.ParseText(ctx, edited)
	if err != nil {
		return nil, errors.RoundTrip("reparse edited module text", err)
	}
	final, err := out.EmitBinary(ctx)
	if err != nil {
		return nil, errors.RoundTrip("emit edited module", err)
	}
	if err := Verify(ctx, final); err != nil {
		return nil, err
	}
	stats.OutputSize = len(final)

	log.Debug("module transformed",
		zap.Int("dead_branches", stats.DeadBranches),
		zap.Int("stubs_removed", stats.StubsRemoved),
		zap.Int("stubs_kept", stats.StubsKept),
		zap.Int("exports_removed", stats.ExportsRemoved),
		zap.Int("input_size", stats.InputSize),
		zap.Int("output_size", stats.OutputSize))

	return &Result{Binary: final, Text: edited, Stats: stats}, nil
}
