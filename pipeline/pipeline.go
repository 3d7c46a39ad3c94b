// Package pipeline runs the whole post-build pass over one bindings
// package.
//
// Run reads every input fully, checks the generator version, transforms
// the module, rewrites declarations and glue, cross-checks the two
// rewrites, emits both glue variants and commits all outputs at once.
// Nothing is written unless every step succeeds.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/bindpost/config"
	"github.com/wippyai/bindpost/decl"
	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/glue"
	"github.com/wippyai/bindpost/modpass"
	"github.com/wippyai/bindpost/toolchain"
)

// Step names a pipeline stage, reported through Options.OnStep.
type Step string

const (
	StepRead      Step = "read"
	StepCompat    Step = "compat"
	StepTransform Step = "transform"
	StepRewrite   Step = "rewrite"
	StepVerify    Step = "verify"
	StepEmit      Step = "emit"
	StepWrite     Step = "write"
)

// Options tunes a run.
type Options struct {
	// OnStep is called as each stage starts.
	OnStep func(Step)
	// DryRun runs every stage except the final commit.
	DryRun bool
	// Toolchain replaces the one named by the configuration.
	Toolchain toolchain.Toolchain
}

// Run executes the pipeline described by cfg.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	return RunWithOptions(ctx, cfg, Options{})
}

// input is an artifact read at the start of the run.
type input struct {
	path string
	data []byte
	mode os.FileMode
}

func read(path string) (input, error) {
	st, err := os.Stat(path)
	if err != nil {
		return input{}, errors.IO(errors.PhaseRead, path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return input{}, errors.IO(errors.PhaseRead, path, err)
	}
	return input{path: path, data: data, mode: st.Mode().Perm()}, nil
}

// RunWithOptions is Run with explicit options.
func RunWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	step := func(s Step) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.OnStep != nil {
			opts.OnStep(s)
		}
		return nil
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Started:   time.Now(),
		Toolchain: cfg.Toolchain,
	}
	log := Logger().With(zap.String("run_id", report.RunID))
	files := cfg.Files()

	if err := step(StepRead); err != nil {
		return nil, err
	}
	var in struct{ wasm, js, decl, bgDecl input }
	for _, r := range []struct {
		dst  *input
		path string
	}{
		{&in.wasm, files.Wasm},
		{&in.js, files.JS},
		{&in.decl, files.Decl},
		{&in.bgDecl, files.BgDecl},
	} {
		v, err := read(r.path)
		if err != nil {
			return nil, err
		}
		*r.dst = v
	}
	header, err := cfg.Banner()
	if err != nil {
		return nil, err
	}

	if err := step(StepCompat); err != nil {
		return nil, err
	}
	contract, err := cfg.Contract()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "generator range")
	}
	match, err := contract.Resolve(in.wasm.data, cfg.Generator.Version)
	if err != nil {
		return nil, err
	}
	report.Generator = Generator{Name: contract.Generator, Version: match.Version.String(), Source: match.Source}

	if err := step(StepTransform); err != nil {
		return nil, err
	}
	tc := opts.Toolchain
	if tc == nil {
		if tc, err = cfg.NewToolchain(); err != nil {
			return nil, err
		}
	}
	report.Toolchain = tc.Name()
	mod, err := modpass.TransformWithOptions(ctx, tc, in.wasm.data, cfg.Options())
	if err != nil {
		return nil, err
	}
	report.Module = moduleStats(mod.Stats)

	if err := step(StepRewrite); err != nil {
		return nil, err
	}
	d, err := decl.Rewrite(string(in.decl.data))
	if err != nil {
		return nil, withArtifact(err, files.Decl)
	}
	g, err := glue.Rewrite(string(in.js.data), cfg.Table(), glue.Options{SplitImport: cfg.SplitImport()})
	if err != nil {
		return nil, withArtifact(err, files.JS)
	}

	if err := step(StepVerify); err != nil {
		return nil, err
	}
	if err := checkConsistency(d, g); err != nil {
		return nil, err
	}
	report.Accessors = g.Accessors
	report.Skipped = g.Skipped
	for _, ref := range g.OutMethods {
		report.OutMethods = append(report.OutMethods, ref.String())
	}

	if err := step(StepEmit); err != nil {
		return nil, err
	}
	inlined, err := g.Emit(glue.Inlined, header, mod.Binary)
	if err != nil {
		return nil, err
	}
	split, err := g.Emit(glue.Split, header, mod.Binary)
	if err != nil {
		return nil, err
	}

	outputs := []output{
		{path: files.Wasm, data: mod.Binary, mode: in.wasm.mode},
		{path: files.Text, data: []byte(mod.Text), mode: in.wasm.mode},
		{path: files.JS, data: []byte(inlined), mode: in.js.mode},
		{path: files.SplitJS, data: []byte(split), mode: in.js.mode},
		{path: files.Decl, data: []byte(header + d.Text), mode: in.decl.mode},
		{path: files.BgDecl, data: append([]byte(header), in.bgDecl.data...), mode: in.bgDecl.mode},
	}
	sizes := map[string]int64{
		files.Wasm:   int64(len(in.wasm.data)),
		files.JS:     int64(len(in.js.data)),
		files.Decl:   int64(len(in.decl.data)),
		files.BgDecl: int64(len(in.bgDecl.data)),
	}
	for _, out := range outputs {
		before, ok := sizes[out.path]
		if !ok {
			before = existingSize(out.path)
		}
		report.Artifacts = append(report.Artifacts, newArtifact(out.path, before, out.data))
	}
	report.Duration = time.Since(report.Started)

	if cfg.WriteManifest() {
		manifest, err := report.Manifest()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "encode manifest")
		}
		outputs = append(outputs, output{path: files.Manifest, data: manifest})
	}

	if opts.DryRun {
		log.Info("dry run, nothing written", zap.Int("outputs", len(outputs)))
		return report, nil
	}
	if err := step(StepWrite); err != nil {
		return nil, err
	}
	if err := commit(outputs, log); err != nil {
		return nil, err
	}

	log.Info("bindings package rewritten",
		zap.String("dir", cfg.ArtifactDir()),
		zap.String("generator", report.Generator.Version),
		zap.Int("accessors", len(report.Accessors)),
		zap.Int("out_methods", len(report.OutMethods)),
		zap.Int("wasm_before", mod.Stats.InputSize),
		zap.Int("wasm_after", mod.Stats.OutputSize),
		zap.Duration("elapsed", time.Since(report.Started)),
	)
	return report, nil
}

// withArtifact points a rewriter error at the file it came from.
func withArtifact(err error, path string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		e.Artifact = path
	}
	return err
}

func existingSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}

// Summary is a one-line description of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s %s: %d accessors, %d out-methods, module %d -> %d bytes",
		r.Generator.Name, r.Generator.Version, len(r.Accessors), len(r.OutMethods),
		r.Module.InputSize, r.Module.OutputSize)
}
