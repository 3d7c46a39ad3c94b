package toolchain

import (
	"fmt"

	"github.com/wippyai/bindpost/wasm"
)

// PassStats counts what the canonicalization passes removed.
type PassStats struct {
	Nops             int
	DeadInstructions int
	CustomSections   int
}

// Canonicalize rewrites every function body in place: nop instructions
// are dropped, and instructions following an unconditional transfer
// (unreachable, br, br_table, return) are removed up to the end of the
// enclosing block. Running it twice is a no-op the second time.
func Canonicalize(m *wasm.Module) (PassStats, error) {
	var stats PassStats
	numImported := uint32(m.NumImportedFuncs())
	for i := range m.Code {
		body := &m.Code[i]
		instrs, err := wasm.DecodeInstructions(body.Code)
		if err != nil {
			return stats, fmt.Errorf("decode func %d: %w", numImported+uint32(i), err)
		}

		out, nops := dropNops(instrs)
		out, dead := removeDeadCode(out)
		if nops == 0 && dead == 0 {
			continue
		}
		stats.Nops += nops
		stats.DeadInstructions += dead
		body.Code = wasm.EncodeInstructions(out)
	}
	return stats, nil
}

func dropNops(instrs []wasm.Instruction) ([]wasm.Instruction, int) {
	out := instrs[:0:0]
	removed := 0
	for _, in := range instrs {
		if in.Opcode == wasm.OpNop {
			removed++
			continue
		}
		out = append(out, in)
	}
	return out, removed
}

func isTransfer(op byte) bool {
	switch op {
	case wasm.OpUnreachable, wasm.OpBr, wasm.OpBrTable, wasm.OpReturn:
		return true
	}
	return false
}

// removeDeadCode drops unreachable instructions after an unconditional
// transfer. Nested blocks inside the dead region are skipped whole; the
// else or end that closes the current block is kept.
func removeDeadCode(instrs []wasm.Instruction) ([]wasm.Instruction, int) {
	out := make([]wasm.Instruction, 0, len(instrs))
	removed := 0
	for i := 0; i < len(instrs); i++ {
		in := instrs[i]
		out = append(out, in)
		if !isTransfer(in.Opcode) {
			continue
		}

		depth := 0
		j := i + 1
		for ; j < len(instrs); j++ {
			op := instrs[j].Opcode
			if depth == 0 && (op == wasm.OpEnd || op == wasm.OpElse) {
				break
			}
			switch {
			case instrs[j].IsBlockStart():
				depth++
			case op == wasm.OpEnd:
				depth--
			}
		}
		removed += j - i - 1
		i = j - 1
	}
	return out, removed
}
