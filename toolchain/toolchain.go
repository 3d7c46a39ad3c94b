package toolchain

import (
	"context"

	"github.com/wippyai/bindpost/errors"
)

// Toolchain names accepted by New.
const (
	NameNative   = "native"
	NameBinaryen = "binaryen"
)

// Options are the optimizer knobs. The transformer runs with both at zero:
// canonicalization only.
type Options struct {
	OptimizeLevel int
	ShrinkLevel   int
}

// IR is a parsed module held by a toolchain.
type IR interface {
	Optimize(ctx context.Context, opts Options) error
	EmitText(ctx context.Context) (string, error)
	EmitBinary(ctx context.Context) ([]byte, error)
}

// Toolchain parses binaries and text into IR.
type Toolchain interface {
	Name() string
	Parse(ctx context.Context, bin []byte) (IR, error)
	ParseText(ctx context.Context, text string) (IR, error)
}

// New returns the toolchain registered under name. binDir is only used by
// the binaryen toolchain; empty means PATH lookup.
func New(name, binDir string) (Toolchain, error) {
	switch name {
	case "", NameNative:
		return NewNative(), nil
	case NameBinaryen:
		return NewBinaryen(binDir), nil
	}
	return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path("toolchain").
		Detail("unknown toolchain %q (want %s or %s)", name, NameNative, NameBinaryen).
		Build()
}
