package wasm_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/wippyai/bindpost/wasm"
)

func TestDecodeEncodeInstructions(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"empty body", []byte{wasm.OpEnd}},
		{"block and br_if", []byte{
			wasm.OpBlock, 0x40,
			wasm.OpLocalGet, 0,
			wasm.OpBrIf, 0,
			wasm.OpEnd,
			wasm.OpEnd,
		}},
		{"br_table", []byte{
			wasm.OpBlock, 0x40,
			wasm.OpI32Const, 1,
			wasm.OpBrTable, 2, 0, 0, 0,
			wasm.OpEnd,
			wasm.OpEnd,
		}},
		{"memory access", []byte{
			wasm.OpLocalGet, 1,
			wasm.OpLocalGet, 0,
			wasm.OpI32Load, 0x02, 0x04,
			0x36, 0x02, 0x08, // i32.store offset=8
			wasm.OpEnd,
		}},
		{"negative constants", []byte{
			wasm.OpI32Const, 0x7F,
			wasm.OpDrop,
			wasm.OpI64Const, 0x80, 0x7F,
			wasm.OpDrop,
			wasm.OpEnd,
		}},
		{"float constants", []byte{
			wasm.OpF32Const, 0x00, 0x00, 0x80, 0x3F,
			wasm.OpDrop,
			wasm.OpF64Const, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F,
			wasm.OpDrop,
			wasm.OpEnd,
		}},
		{"bulk memory", []byte{
			wasm.OpI32Const, 0,
			wasm.OpI32Const, 0,
			wasm.OpI32Const, 4,
			wasm.OpPrefixMisc, 0x0A, 0, 0, // memory.copy
			wasm.OpPrefixMisc, 0x09, 0, // data.drop 0
			wasm.OpEnd,
		}},
		{"call_indirect and typed select", []byte{
			wasm.OpI32Const, 0,
			wasm.OpCallIndirect, 1, 0,
			wasm.OpI32Const, 1,
			wasm.OpI32Const, 2,
			wasm.OpSelectType, 1, byte(wasm.ValI32),
			wasm.OpEnd,
		}},
		{"reference types", []byte{
			wasm.OpRefNull, 0x70,
			wasm.OpRefIsNull,
			wasm.OpDrop,
			wasm.OpRefFunc, 3,
			wasm.OpDrop,
			wasm.OpEnd,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrs, err := wasm.DecodeInstructions(tt.code)
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			got := wasm.EncodeInstructions(instrs)
			if !bytes.Equal(got, tt.code) {
				t.Errorf("round trip mismatch:\n got  %x\n want %x", got, tt.code)
			}
		})
	}
}

func TestDecodeImmediates(t *testing.T) {
	instrs, err := wasm.DecodeInstructions([]byte{
		wasm.OpI32Const, 0x7F,
		wasm.OpI32Load, 0x02, 0x10,
		wasm.OpF32Const, 0x00, 0x00, 0xC0, 0x7F,
		wasm.OpEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 4 {
		t.Fatalf("got %d instructions", len(instrs))
	}
	if v := instrs[0].Imm.(wasm.I32Imm).Value; v != -1 {
		t.Errorf("i32.const = %d, want -1", v)
	}
	mem := instrs[1].Imm.(wasm.MemoryImm)
	if mem.Align != 2 || mem.Offset != 16 {
		t.Errorf("memarg = %+v", mem)
	}
	f := instrs[2].Imm.(wasm.F32Imm).Value
	if !math.IsNaN(float64(f)) || math.Float32bits(f) != 0x7FC00000 {
		t.Errorf("f32 nan bits = %#x", math.Float32bits(f))
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := wasm.DecodeInstructions([]byte{0xFE, 0x00}); err == nil {
		t.Error("expected error for unknown opcode")
	}
	if _, err := wasm.DecodeInstructions([]byte{wasm.OpPrefixMisc, 0x40}); err == nil {
		t.Error("expected error for unknown misc sub-opcode")
	}
}

func TestOpcodeTable(t *testing.T) {
	tests := []struct {
		name string
		op   byte
		misc uint32
		imm  wasm.ImmKind
	}{
		{"i32.load", 0x28, 0, wasm.ImmMem},
		{"br_if", 0x0D, 0, wasm.ImmLabel},
		{"f64.promote_f32", 0xBB, 0, wasm.ImmNone},
		{"memory.fill", wasm.OpPrefixMisc, wasm.MiscMemoryFill, wasm.ImmMemIdx},
		{"tee_local", wasm.OpLocalTee, 0, wasm.ImmLocal},
		{"get_local", wasm.OpLocalGet, 0, wasm.ImmLocal},
		{"select", wasm.OpSelect, 0, wasm.ImmNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, info, ok := wasm.LookupName(tt.name)
			if !ok {
				t.Fatalf("LookupName(%q) failed", tt.name)
			}
			if code.Op != tt.op || code.Misc != tt.misc {
				t.Errorf("opcode = %+v", code)
			}
			if info.Imm != tt.imm {
				t.Errorf("imm kind = %d, want %d", info.Imm, tt.imm)
			}
		})
	}

	if info, ok := wasm.LookupOpcode(0x29); !ok || info.Align != 3 {
		t.Errorf("i64.load natural alignment = %d", info.Align)
	}
	if _, ok := wasm.LookupOpcode(0x27); ok {
		t.Error("0x27 is not an opcode")
	}
}

func TestLEB128(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, 64, -64, -65, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		var buf bytes.Buffer
		wasm.WriteLEB128s64(&buf, v)
		got, err := wasm.ReadLEB128s64(&buf)
		if err != nil || got != v {
			t.Errorf("s64 %d: got %d, %v", v, got, err)
		}
	}
	for _, v := range []int32{0, -1, 127, -128, math.MaxInt32, math.MinInt32} {
		var buf bytes.Buffer
		wasm.WriteLEB128s(&buf, v)
		got, err := wasm.ReadLEB128s(&buf)
		if err != nil || got != v {
			t.Errorf("s32 %d: got %d, %v", v, got, err)
		}
	}
	for _, v := range []uint32{0, 127, 128, 624485, math.MaxUint32} {
		var buf bytes.Buffer
		wasm.WriteLEB128u(&buf, v)
		got, err := wasm.ReadLEB128u(&buf)
		if err != nil || got != v {
			t.Errorf("u32 %d: got %d, %v", v, got, err)
		}
	}

	if _, err := wasm.ReadLEB128u(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})); err != wasm.ErrOverflow {
		t.Errorf("expected overflow, got %v", err)
	}
}
