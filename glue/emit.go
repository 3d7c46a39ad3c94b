package glue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/jsscan"
)

// Variant selects how the glue module obtains the wasm binary.
type Variant uint8

const (
	// Inlined embeds the binary as a byte array and exports an async init
	// that instantiates it.
	Inlined Variant = iota
	// Split imports the wasm exports from a separate module, for bundlers
	// that load wasm natively.
	Split
)

// Variants lists every variant in emission order.
var Variants = []Variant{Inlined, Split}

func (v Variant) String() string {
	switch v {
	case Inlined:
		return "inlined"
	case Split:
		return "split"
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

// Emit assembles the distributable glue module for variant. header is
// prepended verbatim; binary is only used by Inlined.
func (r *Result) Emit(v Variant, header string, binary []byte) (string, error) {
	switch v {
	case Inlined:
		return r.inlined(header, binary), nil
	case Split:
		return r.split(header)
	}
	return "", errors.InvalidInput(errors.PhaseEmit, "unknown variant "+v.String())
}

func (r *Result) inlined(header string, binary []byte) string {
	var b strings.Builder
	b.Grow(len(header) + len(r.Text) + len(binary)*4 + 128)
	b.WriteString(header)
	b.WriteString(r.Text)
	if !strings.HasSuffix(r.Text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("export async function init() {\n")
	b.WriteString("    return " + LoaderName + "(new Uint8Array([")
	buf := make([]byte, 0, 4)
	for i, c := range binary {
		if i > 0 {
			b.WriteByte(',')
		}
		buf = strconv.AppendUint(buf[:0], uint64(c), 10)
		b.Write(buf)
	}
	b.WriteString("]));\n}\n")
	return b.String()
}

func (r *Result) split(header string) (string, error) {
	if r.opts.SplitImport == "" {
		return "", errors.New(errors.PhaseEmit, errors.KindInvalidInput).
			Artifact(Artifact).
			Detail("split variant needs an import path").
			Build()
	}
	f, err := jsscan.Parse(r.Text)
	if err != nil {
		return "", errors.New(errors.PhaseEmit, errors.KindInvalidInput).
			Artifact(Artifact).
			Cause(err).
			Detail("rescan rewritten glue").
			Build()
	}
	decls := f.FindTopLevel("let", "wasm", ";")
	if len(decls) == 0 {
		return "", errors.RequiredPatternMissing(errors.PhaseEmit, Artifact, "top-level let wasm declaration")
	}

	var p jsscan.Patch
	for _, s := range decls {
		p.Delete(jsscan.WholeLines(r.Text, s))
	}
	body, err := p.Apply(r.Text)
	if err != nil {
		return "", errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "remove let wasm")
	}

	var b strings.Builder
	b.Grow(len(header) + len(body) + len(r.opts.SplitImport) + 32)
	b.WriteString(header)
	b.WriteString("import * as wasm from '")
	b.WriteString(r.opts.SplitImport)
	b.WriteString("';\n")
	b.WriteString(body)
	return b.String(), nil
}
