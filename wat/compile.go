package wat

import (
	"fmt"

	"github.com/wippyai/bindpost/wasm"
	"github.com/wippyai/bindpost/wat/internal/encoder"
	"github.com/wippyai/bindpost/wat/internal/parser"
	"github.com/wippyai/bindpost/wat/sexpr"
)

// Compile assembles module text into its binary encoding. The result is
// decoded and validated again before it is returned, so structural
// problems the parser lets through (duplicate export names, out of range
// indices) surface here rather than at instantiation.
func Compile(source string) ([]byte, error) {
	tokens, err := sexpr.Tokenize(source)
	if err != nil {
		return nil, err
	}
	mod, err := parser.New(tokens).Parse()
	if err != nil {
		return nil, err
	}
	bin := encoder.Encode(mod)

	m, err := wasm.ParseModule(bin)
	if err != nil {
		return nil, fmt.Errorf("assembled module: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return bin, nil
}
