package bindpost

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/compat"
	"github.com/wippyai/bindpost/config"
	"github.com/wippyai/bindpost/decl"
	"github.com/wippyai/bindpost/glue"
	"github.com/wippyai/bindpost/modpass"
	"github.com/wippyai/bindpost/pipeline"
	"github.com/wippyai/bindpost/toolchain"
)

// Report is the outcome of a successful run.
type Report = pipeline.Report

// Run executes the full pass described by cfg.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	return pipeline.Run(ctx, cfg)
}

// RunDir discovers bindpost.yaml from dir, falling back to the defaults
// rooted at dir, and runs the pass.
func RunDir(ctx context.Context, dir string) (*Report, error) {
	cfg, err := config.Discover(dir)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, cfg)
}

// SetLogger installs l in every package that logs.
func SetLogger(l *zap.Logger) {
	pipeline.SetLogger(l.Named("pipeline"))
	compat.SetLogger(l.Named("compat"))
	modpass.SetLogger(l.Named("modpass"))
	toolchain.SetLogger(l.Named("toolchain"))
	decl.SetLogger(l.Named("decl"))
	glue.SetLogger(l.Named("glue"))
}
