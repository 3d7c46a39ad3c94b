package encoder

import (
	"bytes"
	"testing"

	"github.com/wippyai/bindpost/wasm"
	"github.com/wippyai/bindpost/wat/internal/ast"
)

func TestBufferWriteU32(t *testing.T) {
	tests := []struct {
		want []byte
		val  uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.WriteU32(tt.val)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteU32(%d) = %v, want %v", tt.val, b.Bytes, tt.want)
		}
	}
}

func TestBufferWriteI32(t *testing.T) {
	tests := []struct {
		want []byte
		val  int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, -1},
		{[]byte{0x3F}, 63},
		{[]byte{0xC0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0xBF, 0x7F}, -65},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.WriteI32(tt.val)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteI32(%d) = %v, want %v", tt.val, b.Bytes, tt.want)
		}
	}
}

func TestEncodeEmptyModule(t *testing.T) {
	want := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	if got := Encode(&ast.Module{}); !bytes.Equal(got, want) {
		t.Errorf("Encode empty module = %v, want %v", got, want)
	}
}

func TestEncodeInstr(t *testing.T) {
	tests := []struct {
		name  string
		instr ast.Instr
		want  []byte
	}{
		{"nop", ast.Instr{Opcode: ast.OpNop}, []byte{0x01}},
		{"local_get", ast.Instr{Opcode: ast.OpLocalGet, Imm: uint32(3)}, []byte{0x20, 0x03}},
		{"i32_const", ast.Instr{Opcode: ast.OpI32Const, Imm: int32(-1)}, []byte{0x41, 0x7F}},
		{"i32_load", ast.Instr{Opcode: ast.OpI32Load, Imm: ast.Memarg{Align: 2, Offset: 8}}, []byte{0x28, 0x02, 0x08}},
		{"data_drop", ast.Instr{Opcode: ast.OpPrefixMisc, Imm: []uint32{ast.MiscOpDataDrop, 1}}, []byte{0xFC, 0x09, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Buffer{}
			EncodeInstr(b, tt.instr)
			if !bytes.Equal(b.Bytes, tt.want) {
				t.Errorf("EncodeInstr = %x, want %x", b.Bytes, tt.want)
			}
		})
	}
}

func emptyFunc() ([]ast.FuncType, []ast.FuncEntry, []ast.FuncBody) {
	return []ast.FuncType{{}}, []ast.FuncEntry{{TypeIdx: 0}}, []ast.FuncBody{{Code: []ast.Instr{{Opcode: ast.OpEnd}}}}
}

func offsetExpr(v int32) []ast.Instr {
	return []ast.Instr{{Opcode: ast.OpI32Const, Imm: v}, {Opcode: ast.OpEnd}}
}

func TestEncodeDataFlags(t *testing.T) {
	tests := []struct {
		name string
		seg  ast.DataSegment
		want uint32
	}{
		{"active", ast.DataSegment{Offset: offsetExpr(0), Init: []byte("a")}, 0},
		{"passive", ast.DataSegment{Passive: true, Init: []byte("b")}, 1},
		{"explicit_memory", ast.DataSegment{Offset: offsetExpr(4), Init: []byte("c"), ExplicitMem: true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ast.Module{
				Memories: []ast.Memory{{Limits: ast.Limits{Min: 1}}},
				Data:     []ast.DataSegment{tt.seg},
			}
			decoded, err := wasm.ParseModule(Encode(m))
			if err != nil {
				t.Fatalf("ParseModule: %v", err)
			}
			if len(decoded.Data) != 1 || decoded.Data[0].Flags != tt.want {
				t.Errorf("data = %+v, want flags %d", decoded.Data, tt.want)
			}
		})
	}
}

func TestEncodeDataCount(t *testing.T) {
	tests := []struct {
		name      string
		passive   bool
		needsData bool
		want      bool
	}{
		{"active_only", false, false, false},
		{"passive_segment", true, false, true},
		{"indexed_by_code", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types, funcs, code := emptyFunc()
			seg := ast.DataSegment{Offset: offsetExpr(0), Init: []byte("x")}
			if tt.passive {
				seg = ast.DataSegment{Passive: true, Init: []byte("x")}
			}
			m := &ast.Module{
				Types:          types,
				Funcs:          funcs,
				Code:           code,
				Memories:       []ast.Memory{{Limits: ast.Limits{Min: 1}}},
				Data:           []ast.DataSegment{seg},
				NeedsDataCount: tt.needsData,
			}
			decoded, err := wasm.ParseModule(Encode(m))
			if err != nil {
				t.Fatalf("ParseModule: %v", err)
			}
			if got := decoded.DataCount != nil; got != tt.want {
				t.Errorf("has DataCount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeElemActiveTable(t *testing.T) {
	types, funcs, code := emptyFunc()
	m := &ast.Module{
		Types:  types,
		Funcs:  funcs,
		Code:   code,
		Tables: []ast.Table{{Limits: ast.Limits{Min: 1}, ElemType: ast.RefTypeFuncref}},
		Elems: []ast.Elem{{
			Mode:   ast.ElemModeActiveTable,
			Offset: offsetExpr(0),
			Init:   []uint32{0},
		}},
	}
	decoded, err := wasm.ParseModule(Encode(m))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(decoded.Elements) != 1 || decoded.Elements[0].Flags != 2 || decoded.Elements[0].TableIdx != 0 {
		t.Errorf("elements = %+v, want one flag 2 segment on table 0", decoded.Elements)
	}
}
