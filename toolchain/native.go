package toolchain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/wasm"
	"github.com/wippyai/bindpost/wat"
)

// Native is the in-process toolchain built on the wasm codec and the wat
// printer and assembler.
type Native struct{}

// NewNative returns the in-process toolchain.
func NewNative() *Native {
	return &Native{}
}

func (*Native) Name() string { return NameNative }

// Parse decodes a binary module.
func (*Native) Parse(_ context.Context, bin []byte) (IR, error) {
	m, err := wasm.ParseModule(bin)
	if err != nil {
		return nil, errors.New(errors.PhaseOptimize, errors.KindInvalidInput).
			Cause(err).
			Detail("parse binary module").
			Build()
	}
	return &nativeIR{m: m}, nil
}

// ParseText assembles module text.
func (*Native) ParseText(_ context.Context, text string) (IR, error) {
	bin, err := wat.Compile(text)
	if err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Cause(err).
			Detail("assemble module text").
			Build()
	}
	m, err := wasm.ParseModule(bin)
	if err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Cause(err).
			Detail("decode assembled module").
			Build()
	}
	return &nativeIR{m: m}, nil
}

type nativeIR struct {
	m *wasm.Module
}

// Optimize runs the canonicalization passes. Only level 0 is implemented.
func (ir *nativeIR) Optimize(_ context.Context, opts Options) error {
	if opts.OptimizeLevel > 0 {
		return errors.Unsupported(errors.PhaseOptimize,
			fmt.Sprintf("optimize level %d (native toolchain only canonicalizes)", opts.OptimizeLevel))
	}

	stats, err := Canonicalize(ir.m)
	if err != nil {
		return errors.New(errors.PhaseOptimize, errors.KindInvalidInput).
			Cause(err).
			Detail("canonicalize").
			Build()
	}
	if opts.ShrinkLevel > 0 {
		stats.CustomSections = ir.m.StripCustomSections(func(string) bool { return true })
	}

	Logger().Debug("canonicalized module",
		zap.Int("nops", stats.Nops),
		zap.Int("dead_instructions", stats.DeadInstructions),
		zap.Int("custom_sections", stats.CustomSections))
	return nil
}

func (ir *nativeIR) EmitText(context.Context) (string, error) {
	text, err := wat.Print(ir.m)
	if err != nil {
		return "", errors.New(errors.PhaseOptimize, errors.KindUnsupported).
			Cause(err).
			Detail("print module text").
			Build()
	}
	return text, nil
}

func (ir *nativeIR) EmitBinary(context.Context) ([]byte, error) {
	return ir.m.Encode(), nil
}
