package wasm

// ImmKind describes the immediate operands that follow an opcode.
type ImmKind uint8

const (
	ImmNone         ImmKind = iota
	ImmBlock                // blocktype
	ImmLabel                // labelidx
	ImmBrTable              // vec(labelidx) labelidx
	ImmFunc                 // funcidx
	ImmCallIndirect         // typeidx tableidx
	ImmLocal                // localidx
	ImmGlobal               // globalidx
	ImmTable                // tableidx
	ImmMem                  // memarg
	ImmMemIdx               // reserved memory index byte
	ImmI32                  // i32 constant
	ImmI64                  // i64 constant
	ImmF32                  // f32 constant
	ImmF64                  // f64 constant
	ImmRefNull              // heap type
	ImmSelectType           // vec(valtype)
	ImmDataMem              // dataidx memidx
	ImmData                 // dataidx
	ImmMemMem               // memidx memidx
	ImmElemTable            // elemidx tableidx
	ImmElem                 // elemidx
	ImmTableTable           // tableidx tableidx
)

// OpInfo describes a single instruction in both binary and text form.
type OpInfo struct {
	Name  string
	Imm   ImmKind
	Align uint32 // natural alignment (log2) for memory accesses
}

// Opcode identifies an instruction. Misc is only meaningful when Op is OpPrefixMisc.
type Opcode struct {
	Op   byte
	Misc uint32
}

var opcodeInfo = [256]OpInfo{
	0x00: {Name: "unreachable"},
	0x01: {Name: "nop"},
	0x02: {Name: "block", Imm: ImmBlock},
	0x03: {Name: "loop", Imm: ImmBlock},
	0x04: {Name: "if", Imm: ImmBlock},
	0x05: {Name: "else"},
	0x0B: {Name: "end"},
	0x0C: {Name: "br", Imm: ImmLabel},
	0x0D: {Name: "br_if", Imm: ImmLabel},
	0x0E: {Name: "br_table", Imm: ImmBrTable},
	0x0F: {Name: "return"},
	0x10: {Name: "call", Imm: ImmFunc},
	0x11: {Name: "call_indirect", Imm: ImmCallIndirect},

	0x1A: {Name: "drop"},
	0x1B: {Name: "select"},
	0x1C: {Name: "select", Imm: ImmSelectType},

	0x20: {Name: "local.get", Imm: ImmLocal},
	0x21: {Name: "local.set", Imm: ImmLocal},
	0x22: {Name: "local.tee", Imm: ImmLocal},
	0x23: {Name: "global.get", Imm: ImmGlobal},
	0x24: {Name: "global.set", Imm: ImmGlobal},
	0x25: {Name: "table.get", Imm: ImmTable},
	0x26: {Name: "table.set", Imm: ImmTable},

	0x28: {Name: "i32.load", Imm: ImmMem, Align: 2},
	0x29: {Name: "i64.load", Imm: ImmMem, Align: 3},
	0x2A: {Name: "f32.load", Imm: ImmMem, Align: 2},
	0x2B: {Name: "f64.load", Imm: ImmMem, Align: 3},
	0x2C: {Name: "i32.load8_s", Imm: ImmMem, Align: 0},
	0x2D: {Name: "i32.load8_u", Imm: ImmMem, Align: 0},
	0x2E: {Name: "i32.load16_s", Imm: ImmMem, Align: 1},
	0x2F: {Name: "i32.load16_u", Imm: ImmMem, Align: 1},
	0x30: {Name: "i64.load8_s", Imm: ImmMem, Align: 0},
	0x31: {Name: "i64.load8_u", Imm: ImmMem, Align: 0},
	0x32: {Name: "i64.load16_s", Imm: ImmMem, Align: 1},
	0x33: {Name: "i64.load16_u", Imm: ImmMem, Align: 1},
	0x34: {Name: "i64.load32_s", Imm: ImmMem, Align: 2},
	0x35: {Name: "i64.load32_u", Imm: ImmMem, Align: 2},
	0x36: {Name: "i32.store", Imm: ImmMem, Align: 2},
	0x37: {Name: "i64.store", Imm: ImmMem, Align: 3},
	0x38: {Name: "f32.store", Imm: ImmMem, Align: 2},
	0x39: {Name: "f64.store", Imm: ImmMem, Align: 3},
	0x3A: {Name: "i32.store8", Imm: ImmMem, Align: 0},
	0x3B: {Name: "i32.store16", Imm: ImmMem, Align: 1},
	0x3C: {Name: "i64.store8", Imm: ImmMem, Align: 0},
	0x3D: {Name: "i64.store16", Imm: ImmMem, Align: 1},
	0x3E: {Name: "i64.store32", Imm: ImmMem, Align: 2},
	0x3F: {Name: "memory.size", Imm: ImmMemIdx},
	0x40: {Name: "memory.grow", Imm: ImmMemIdx},

	0x41: {Name: "i32.const", Imm: ImmI32},
	0x42: {Name: "i64.const", Imm: ImmI64},
	0x43: {Name: "f32.const", Imm: ImmF32},
	0x44: {Name: "f64.const", Imm: ImmF64},

	0x45: {Name: "i32.eqz"},
	0x46: {Name: "i32.eq"},
	0x47: {Name: "i32.ne"},
	0x48: {Name: "i32.lt_s"},
	0x49: {Name: "i32.lt_u"},
	0x4A: {Name: "i32.gt_s"},
	0x4B: {Name: "i32.gt_u"},
	0x4C: {Name: "i32.le_s"},
	0x4D: {Name: "i32.le_u"},
	0x4E: {Name: "i32.ge_s"},
	0x4F: {Name: "i32.ge_u"},
	0x50: {Name: "i64.eqz"},
	0x51: {Name: "i64.eq"},
	0x52: {Name: "i64.ne"},
	0x53: {Name: "i64.lt_s"},
	0x54: {Name: "i64.lt_u"},
	0x55: {Name: "i64.gt_s"},
	0x56: {Name: "i64.gt_u"},
	0x57: {Name: "i64.le_s"},
	0x58: {Name: "i64.le_u"},
	0x59: {Name: "i64.ge_s"},
	0x5A: {Name: "i64.ge_u"},
	0x5B: {Name: "f32.eq"},
	0x5C: {Name: "f32.ne"},
	0x5D: {Name: "f32.lt"},
	0x5E: {Name: "f32.gt"},
	0x5F: {Name: "f32.le"},
	0x60: {Name: "f32.ge"},
	0x61: {Name: "f64.eq"},
	0x62: {Name: "f64.ne"},
	0x63: {Name: "f64.lt"},
	0x64: {Name: "f64.gt"},
	0x65: {Name: "f64.le"},
	0x66: {Name: "f64.ge"},

	0x67: {Name: "i32.clz"},
	0x68: {Name: "i32.ctz"},
	0x69: {Name: "i32.popcnt"},
	0x6A: {Name: "i32.add"},
	0x6B: {Name: "i32.sub"},
	0x6C: {Name: "i32.mul"},
	0x6D: {Name: "i32.div_s"},
	0x6E: {Name: "i32.div_u"},
	0x6F: {Name: "i32.rem_s"},
	0x70: {Name: "i32.rem_u"},
	0x71: {Name: "i32.and"},
	0x72: {Name: "i32.or"},
	0x73: {Name: "i32.xor"},
	0x74: {Name: "i32.shl"},
	0x75: {Name: "i32.shr_s"},
	0x76: {Name: "i32.shr_u"},
	0x77: {Name: "i32.rotl"},
	0x78: {Name: "i32.rotr"},
	0x79: {Name: "i64.clz"},
	0x7A: {Name: "i64.ctz"},
	0x7B: {Name: "i64.popcnt"},
	0x7C: {Name: "i64.add"},
	0x7D: {Name: "i64.sub"},
	0x7E: {Name: "i64.mul"},
	0x7F: {Name: "i64.div_s"},
	0x80: {Name: "i64.div_u"},
	0x81: {Name: "i64.rem_s"},
	0x82: {Name: "i64.rem_u"},
	0x83: {Name: "i64.and"},
	0x84: {Name: "i64.or"},
	0x85: {Name: "i64.xor"},
	0x86: {Name: "i64.shl"},
	0x87: {Name: "i64.shr_s"},
	0x88: {Name: "i64.shr_u"},
	0x89: {Name: "i64.rotl"},
	0x8A: {Name: "i64.rotr"},
	0x8B: {Name: "f32.abs"},
	0x8C: {Name: "f32.neg"},
	0x8D: {Name: "f32.ceil"},
	0x8E: {Name: "f32.floor"},
	0x8F: {Name: "f32.trunc"},
	0x90: {Name: "f32.nearest"},
	0x91: {Name: "f32.sqrt"},
	0x92: {Name: "f32.add"},
	0x93: {Name: "f32.sub"},
	0x94: {Name: "f32.mul"},
	0x95: {Name: "f32.div"},
	0x96: {Name: "f32.min"},
	0x97: {Name: "f32.max"},
	0x98: {Name: "f32.copysign"},
	0x99: {Name: "f64.abs"},
	0x9A: {Name: "f64.neg"},
	0x9B: {Name: "f64.ceil"},
	0x9C: {Name: "f64.floor"},
	0x9D: {Name: "f64.trunc"},
	0x9E: {Name: "f64.nearest"},
	0x9F: {Name: "f64.sqrt"},
	0xA0: {Name: "f64.add"},
	0xA1: {Name: "f64.sub"},
	0xA2: {Name: "f64.mul"},
	0xA3: {Name: "f64.div"},
	0xA4: {Name: "f64.min"},
	0xA5: {Name: "f64.max"},
	0xA6: {Name: "f64.copysign"},

	0xA7: {Name: "i32.wrap_i64"},
	0xA8: {Name: "i32.trunc_f32_s"},
	0xA9: {Name: "i32.trunc_f32_u"},
	0xAA: {Name: "i32.trunc_f64_s"},
	0xAB: {Name: "i32.trunc_f64_u"},
	0xAC: {Name: "i64.extend_i32_s"},
	0xAD: {Name: "i64.extend_i32_u"},
	0xAE: {Name: "i64.trunc_f32_s"},
	0xAF: {Name: "i64.trunc_f32_u"},
	0xB0: {Name: "i64.trunc_f64_s"},
	0xB1: {Name: "i64.trunc_f64_u"},
	0xB2: {Name: "f32.convert_i32_s"},
	0xB3: {Name: "f32.convert_i32_u"},
	0xB4: {Name: "f32.convert_i64_s"},
	0xB5: {Name: "f32.convert_i64_u"},
	0xB6: {Name: "f32.demote_f64"},
	0xB7: {Name: "f64.convert_i32_s"},
	0xB8: {Name: "f64.convert_i32_u"},
	0xB9: {Name: "f64.convert_i64_s"},
	0xBA: {Name: "f64.convert_i64_u"},
	0xBB: {Name: "f64.promote_f32"},
	0xBC: {Name: "i32.reinterpret_f32"},
	0xBD: {Name: "i64.reinterpret_f64"},
	0xBE: {Name: "f32.reinterpret_i32"},
	0xBF: {Name: "f64.reinterpret_i64"},

	0xC0: {Name: "i32.extend8_s"},
	0xC1: {Name: "i32.extend16_s"},
	0xC2: {Name: "i64.extend8_s"},
	0xC3: {Name: "i64.extend16_s"},
	0xC4: {Name: "i64.extend32_s"},

	0xD0: {Name: "ref.null", Imm: ImmRefNull},
	0xD1: {Name: "ref.is_null"},
	0xD2: {Name: "ref.func", Imm: ImmFunc},
}

var miscInfo = []OpInfo{
	MiscI32TruncSatF32S: {Name: "i32.trunc_sat_f32_s"},
	MiscI32TruncSatF32U: {Name: "i32.trunc_sat_f32_u"},
	MiscI32TruncSatF64S: {Name: "i32.trunc_sat_f64_s"},
	MiscI32TruncSatF64U: {Name: "i32.trunc_sat_f64_u"},
	MiscI64TruncSatF32S: {Name: "i64.trunc_sat_f32_s"},
	MiscI64TruncSatF32U: {Name: "i64.trunc_sat_f32_u"},
	MiscI64TruncSatF64S: {Name: "i64.trunc_sat_f64_s"},
	MiscI64TruncSatF64U: {Name: "i64.trunc_sat_f64_u"},
	MiscMemoryInit:      {Name: "memory.init", Imm: ImmDataMem},
	MiscDataDrop:        {Name: "data.drop", Imm: ImmData},
	MiscMemoryCopy:      {Name: "memory.copy", Imm: ImmMemMem},
	MiscMemoryFill:      {Name: "memory.fill", Imm: ImmMemIdx},
	MiscTableInit:       {Name: "table.init", Imm: ImmElemTable},
	MiscElemDrop:        {Name: "elem.drop", Imm: ImmElem},
	MiscTableCopy:       {Name: "table.copy", Imm: ImmTableTable},
	MiscTableGrow:       {Name: "table.grow", Imm: ImmTable},
	MiscTableSize:       {Name: "table.size", Imm: ImmTable},
	MiscTableFill:       {Name: "table.fill", Imm: ImmTable},
}

// legacyNames maps pre-standard mnemonics still emitted by older toolchains.
var legacyNames = map[string]string{
	"get_local":      "local.get",
	"set_local":      "local.set",
	"tee_local":      "local.tee",
	"get_global":     "global.get",
	"set_global":     "global.set",
	"current_memory": "memory.size",
	"grow_memory":    "memory.grow",
}

var opcodeByName = buildNameIndex()

func buildNameIndex() map[string]Opcode {
	idx := make(map[string]Opcode, 256)
	for op := range opcodeInfo {
		name := opcodeInfo[op].Name
		if name == "" {
			continue
		}
		if _, dup := idx[name]; dup {
			continue
		}
		idx[name] = Opcode{Op: byte(op)}
	}
	for sub, info := range miscInfo {
		idx[info.Name] = Opcode{Op: OpPrefixMisc, Misc: uint32(sub)}
	}
	for legacy, name := range legacyNames {
		idx[legacy] = idx[name]
	}
	return idx
}

// LookupOpcode returns the description of a single-byte opcode.
func LookupOpcode(op byte) (OpInfo, bool) {
	info := opcodeInfo[op]
	return info, info.Name != ""
}

// LookupMisc returns the description of a 0xFC-prefixed sub-opcode.
func LookupMisc(sub uint32) (OpInfo, bool) {
	if int(sub) >= len(miscInfo) {
		return OpInfo{}, false
	}
	return miscInfo[sub], true
}

// LookupName resolves a text mnemonic, including legacy spellings.
func LookupName(name string) (Opcode, OpInfo, bool) {
	code, ok := opcodeByName[name]
	if !ok {
		return Opcode{}, OpInfo{}, false
	}
	if code.Op == OpPrefixMisc {
		return code, miscInfo[code.Misc], true
	}
	return code, opcodeInfo[code.Op], true
}

// Info returns the description of the instruction's opcode.
func (i Instruction) Info() (OpInfo, bool) {
	if i.Opcode == OpPrefixMisc {
		imm, ok := i.Imm.(MiscImm)
		if !ok {
			return OpInfo{}, false
		}
		return LookupMisc(imm.SubOpcode)
	}
	return LookupOpcode(i.Opcode)
}
