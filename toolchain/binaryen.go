package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
)

// Binaryen drives the wasm-opt, wasm-dis and wasm-as command line tools.
// The IR is the binary itself; every operation round-trips through a
// scratch directory.
type Binaryen struct {
	// BinDir holds the tools. Empty means PATH lookup.
	BinDir string
}

// NewBinaryen returns a toolchain using the tools in binDir.
func NewBinaryen(binDir string) *Binaryen {
	return &Binaryen{BinDir: binDir}
}

func (*Binaryen) Name() string { return NameBinaryen }

func (b *Binaryen) Parse(_ context.Context, bin []byte) (IR, error) {
	return &binaryenIR{tc: b, bin: append([]byte(nil), bin...)}, nil
}

// ParseText assembles text with wasm-as.
func (b *Binaryen) ParseText(ctx context.Context, text string) (IR, error) {
	var out []byte
	err := b.withScratch(func(dir string) error {
		in := filepath.Join(dir, "module.wast")
		dst := filepath.Join(dir, "module.wasm")
		if err := os.WriteFile(in, []byte(text), 0o600); err != nil {
			return err
		}
		if _, err := b.run(ctx, "wasm-as", in, "-o", dst); err != nil {
			return err
		}
		var err error
		out, err = os.ReadFile(dst)
		return err
	})
	if err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Cause(err).
			Detail("wasm-as").
			Build()
	}
	return &binaryenIR{tc: b, bin: out}, nil
}

// tool resolves a tool name to an executable path.
func (b *Binaryen) tool(name string) (string, error) {
	if b.BinDir != "" {
		p := filepath.Join(b.BinDir, name)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s not found in %s: %w", name, b.BinDir, err)
		}
		return p, nil
	}
	return exec.LookPath(name)
}

func (b *Binaryen) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := b.tool(name)
	if err != nil {
		return nil, err
	}
	Logger().Debug("running binaryen tool", zap.String("tool", path), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, path, args...) //nolint:gosec // G204: tool path from configuration, args are scratch paths
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %s\n%w", name, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

func (b *Binaryen) withScratch(fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", "bindpost-binaryen-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}

type binaryenIR struct {
	tc  *Binaryen
	bin []byte
}

// Optimize runs wasm-opt with the given levels.
func (ir *binaryenIR) Optimize(ctx context.Context, opts Options) error {
	err := ir.tc.withScratch(func(dir string) error {
		in := filepath.Join(dir, "in.wasm")
		dst := filepath.Join(dir, "out.wasm")
		if err := os.WriteFile(in, ir.bin, 0o600); err != nil {
			return err
		}
		args := []string{
			in,
			"-O" + strconv.Itoa(opts.OptimizeLevel),
			"--shrink-level", strconv.Itoa(opts.ShrinkLevel),
			"-o", dst,
		}
		if opts.ShrinkLevel == 0 {
			// Keep the name section so the text form carries readable names.
			args = append(args, "--debuginfo")
		}
		if _, err := ir.tc.run(ctx, "wasm-opt", args...); err != nil {
			return err
		}
		out, err := os.ReadFile(dst)
		if err != nil {
			return err
		}
		ir.bin = out
		return nil
	})
	if err != nil {
		return errors.New(errors.PhaseOptimize, errors.KindIOFailure).
			Cause(err).
			Detail("wasm-opt").
			Build()
	}
	return nil
}

// EmitText disassembles with wasm-dis.
func (ir *binaryenIR) EmitText(ctx context.Context) (string, error) {
	var text string
	err := ir.tc.withScratch(func(dir string) error {
		in := filepath.Join(dir, "module.wasm")
		if err := os.WriteFile(in, ir.bin, 0o600); err != nil {
			return err
		}
		out, err := ir.tc.run(ctx, "wasm-dis", in)
		text = string(out)
		return err
	})
	if err != nil {
		return "", errors.New(errors.PhaseOptimize, errors.KindIOFailure).
			Cause(err).
			Detail("wasm-dis").
			Build()
	}
	return text, nil
}

func (ir *binaryenIR) EmitBinary(context.Context) ([]byte, error) {
	return append([]byte(nil), ir.bin...), nil
}
