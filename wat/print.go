package wat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/bindpost/wasm"
	"github.com/wippyai/bindpost/wat/internal/number"
	"github.com/wippyai/bindpost/wat/sexpr"
)

// Print renders a module in the text format. Instructions are written in
// flat form, one per line, with symbolic names for functions, globals,
// tables, memories, types and block labels. Function names come from the
// name section, then from the first export of the function, then from the
// function index. Custom sections are not printed.
func Print(m *wasm.Module) (string, error) {
	p := &printer{m: m}
	p.nameFuncs()

	p.line(0, "(module")
	for i, t := range m.Types {
		p.line(1, fmt.Sprintf("(type $t%d (func%s))", i, signature(t, nil)))
	}
	if err := p.imports(); err != nil {
		return "", err
	}

	tableBase := m.NumImportedTables()
	for i, t := range m.Tables {
		p.line(1, fmt.Sprintf("(table $table$%d %s %s)", tableBase+i, limits(t.Limits), t.ElemType))
	}
	memBase := m.NumImportedMemories()
	for i, mem := range m.Memories {
		p.line(1, fmt.Sprintf("(memory $memory$%d %s)", memBase+i, limits(mem.Limits)))
	}
	globalBase := m.NumImportedGlobals()
	for i, g := range m.Globals {
		init, err := p.constExpr(g.Init)
		if err != nil {
			return "", fmt.Errorf("global %d: %w", globalBase+i, err)
		}
		p.line(1, fmt.Sprintf("(global $global$%d %s %s)", globalBase+i, globalType(g.Type), init))
	}

	for _, e := range m.Exports {
		ref, err := p.exportRef(e)
		if err != nil {
			return "", err
		}
		p.line(1, fmt.Sprintf("(export \"%s\" %s)", sexpr.Escape([]byte(e.Name)), ref))
	}
	if m.Start != nil {
		name, err := p.funcName(*m.Start)
		if err != nil {
			return "", fmt.Errorf("start: %w", err)
		}
		p.line(1, fmt.Sprintf("(start %s)", name))
	}

	for i, elem := range m.Elements {
		text, err := p.element(elem)
		if err != nil {
			return "", fmt.Errorf("element segment %d: %w", i, err)
		}
		p.line(1, text)
	}
	for i, seg := range m.Data {
		text, err := p.data(seg)
		if err != nil {
			return "", fmt.Errorf("data segment %d: %w", i, err)
		}
		p.line(1, text)
	}

	base := uint32(m.NumImportedFuncs())
	for i, typeIdx := range m.Funcs {
		if i >= len(m.Code) {
			return "", fmt.Errorf("function %d has no body", base+uint32(i))
		}
		if err := p.function(base+uint32(i), typeIdx, m.Code[i]); err != nil {
			return "", fmt.Errorf("function %s: %w", p.funcs[base+uint32(i)], err)
		}
	}
	p.line(0, ")")
	return p.b.String(), nil
}

type printer struct {
	m         *wasm.Module
	funcs     []string
	labels    []string
	b         strings.Builder
	nextLabel int
}

func (p *printer) line(depth int, text string) {
	p.b.WriteString(strings.Repeat(" ", depth))
	p.b.WriteString(text)
	p.b.WriteByte('\n')
}

func (p *printer) nameFuncs() {
	// A malformed name section only costs readable names.
	names, err := p.m.ParseNames()
	if err != nil {
		names = &wasm.Names{}
	}
	exported := map[uint32]string{}
	for _, e := range p.m.Exports {
		if _, seen := exported[e.Idx]; e.Kind == wasm.KindFunc && !seen {
			exported[e.Idx] = e.Name
		}
	}

	total := p.m.NumImportedFuncs() + len(p.m.Funcs)
	used := make(map[string]bool, total)
	p.funcs = make([]string, total)
	for i := range p.funcs {
		idx := uint32(i)
		base := sanitizeID(names.Funcs[idx])
		if base == "" {
			base = sanitizeID(exported[idx])
		}
		if base == "" {
			base = "f" + strconv.Itoa(i)
		}
		name := "$" + base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("$%s_%d", base, n)
		}
		used[name] = true
		p.funcs[i] = name
	}
}

func (p *printer) funcName(idx uint32) (string, error) {
	if int(idx) >= len(p.funcs) {
		return "", fmt.Errorf("function index %d out of range", idx)
	}
	return p.funcs[idx], nil
}

func (p *printer) imports() error {
	var funcs, tables, mems, globals int
	for _, imp := range p.m.Imports {
		var desc string
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			desc = fmt.Sprintf("(func %s (type $t%d))", p.funcs[funcs], imp.Desc.TypeIdx)
			funcs++
		case wasm.KindTable:
			if imp.Desc.Table == nil {
				return fmt.Errorf("import %s.%s: missing table type", imp.Module, imp.Name)
			}
			desc = fmt.Sprintf("(table $table$%d %s %s)", tables, limits(imp.Desc.Table.Limits), imp.Desc.Table.ElemType)
			tables++
		case wasm.KindMemory:
			if imp.Desc.Memory == nil {
				return fmt.Errorf("import %s.%s: missing memory type", imp.Module, imp.Name)
			}
			desc = fmt.Sprintf("(memory $memory$%d %s)", mems, limits(imp.Desc.Memory.Limits))
			mems++
		case wasm.KindGlobal:
			if imp.Desc.Global == nil {
				return fmt.Errorf("import %s.%s: missing global type", imp.Module, imp.Name)
			}
			desc = fmt.Sprintf("(global $global$%d %s)", globals, globalType(*imp.Desc.Global))
			globals++
		default:
			return fmt.Errorf("import %s.%s: unknown kind %d", imp.Module, imp.Name, imp.Desc.Kind)
		}
		p.line(1, fmt.Sprintf("(import \"%s\" \"%s\" %s)",
			sexpr.Escape([]byte(imp.Module)), sexpr.Escape([]byte(imp.Name)), desc))
	}
	return nil
}

func (p *printer) exportRef(e wasm.Export) (string, error) {
	switch e.Kind {
	case wasm.KindFunc:
		name, err := p.funcName(e.Idx)
		if err != nil {
			return "", fmt.Errorf("export %q: %w", e.Name, err)
		}
		return "(func " + name + ")", nil
	case wasm.KindTable:
		return fmt.Sprintf("(table $table$%d)", e.Idx), nil
	case wasm.KindMemory:
		return fmt.Sprintf("(memory $memory$%d)", e.Idx), nil
	case wasm.KindGlobal:
		return fmt.Sprintf("(global $global$%d)", e.Idx), nil
	}
	return "", fmt.Errorf("export %q: unknown kind %d", e.Name, e.Kind)
}

func (p *printer) element(elem wasm.Element) (string, error) {
	if elem.Flags&0x04 != 0 {
		return "", fmt.Errorf("expression element segments are not supported")
	}
	var parts []string
	parts = append(parts, "(elem")
	switch elem.Flags {
	case 0, 2:
		if elem.Flags == 2 {
			parts = append(parts, fmt.Sprintf("(table $table$%d)", elem.TableIdx))
		}
		offset, err := p.constExpr(elem.Offset)
		if err != nil {
			return "", err
		}
		parts = append(parts, offset)
		if elem.Flags == 2 {
			parts = append(parts, "func")
		}
	case 1:
		parts = append(parts, "func")
	case 3:
		parts = append(parts, "declare", "func")
	default:
		return "", fmt.Errorf("invalid element flags %d", elem.Flags)
	}
	for _, idx := range elem.FuncIdxs {
		name, err := p.funcName(idx)
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " ") + ")", nil
}

func (p *printer) data(seg wasm.DataSegment) (string, error) {
	parts := []string{"(data"}
	if seg.Flags == 2 {
		parts = append(parts, fmt.Sprintf("(memory $memory$%d)", seg.MemIdx))
	}
	if seg.Flags != 1 {
		offset, err := p.constExpr(seg.Offset)
		if err != nil {
			return "", err
		}
		parts = append(parts, offset)
	}
	parts = append(parts, "\""+sexpr.Escape(seg.Init)+"\"")
	return strings.Join(parts, " ") + ")", nil
}

// constExpr renders an init expression as parenthesized instructions.
func (p *printer) constExpr(code []byte) (string, error) {
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		return "", err
	}
	if len(instrs) == 0 || instrs[len(instrs)-1].Opcode != wasm.OpEnd {
		return "", fmt.Errorf("constant expression missing end")
	}
	instrs = instrs[:len(instrs)-1]
	parts := make([]string, len(instrs))
	for i, in := range instrs {
		text, err := p.instr(in)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + text + ")"
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(offset " + strings.Join(parts, " ") + ")", nil
}

func (p *printer) function(idx, typeIdx uint32, body wasm.FuncBody) error {
	if int(typeIdx) >= len(p.m.Types) {
		return fmt.Errorf("type index %d out of range", typeIdx)
	}
	ft := p.m.Types[typeIdx]
	p.line(1, fmt.Sprintf("(func %s (type $t%d)%s", p.funcs[idx], typeIdx, signature(ft, namedParams)))

	local := len(ft.Params)
	for _, entry := range body.Locals {
		for n := uint32(0); n < entry.Count; n++ {
			p.line(2, fmt.Sprintf("(local $%d %s)", local, entry.ValType))
			local++
		}
	}

	instrs, err := wasm.DecodeInstructions(body.Code)
	if err != nil {
		return err
	}
	p.labels = p.labels[:0]
	p.nextLabel = 0
	closed := false
	for _, in := range instrs {
		if closed {
			return fmt.Errorf("instructions after the end of the body")
		}
		depth := 2 + len(p.labels)
		switch in.Opcode {
		case wasm.OpEnd:
			if len(p.labels) == 0 {
				closed = true
				continue
			}
			p.labels = p.labels[:len(p.labels)-1]
			p.line(depth-1, "end")
		case wasm.OpElse:
			if len(p.labels) == 0 {
				return fmt.Errorf("else outside of a block")
			}
			p.line(depth-1, "else")
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			info, _ := in.Info()
			imm := in.Imm.(wasm.BlockImm)
			label := fmt.Sprintf("$label$%d", p.nextLabel)
			p.nextLabel++
			p.line(depth, info.Name+" "+label+blockType(imm.Type))
			p.labels = append(p.labels, label)
		default:
			text, err := p.instr(in)
			if err != nil {
				return err
			}
			p.line(depth, text)
		}
	}
	if !closed {
		return fmt.Errorf("body is not terminated by end")
	}
	p.line(1, ")")
	return nil
}

// label names the target of a branch depth. A branch to the function body
// itself keeps its numeric depth.
func (p *printer) label(depth uint32) (string, error) {
	n := uint32(len(p.labels))
	switch {
	case depth < n:
		return p.labels[n-1-depth], nil
	case depth == n:
		return strconv.FormatUint(uint64(depth), 10), nil
	}
	return "", fmt.Errorf("branch depth %d exceeds nesting %d", depth, n)
}

func (p *printer) instr(in wasm.Instruction) (string, error) {
	info, ok := in.Info()
	if !ok {
		return "", fmt.Errorf("unknown opcode 0x%02x", in.Opcode)
	}

	switch imm := in.Imm.(type) {
	case nil:
		return info.Name, nil
	case wasm.BranchImm:
		l, err := p.label(imm.LabelIdx)
		if err != nil {
			return "", err
		}
		return info.Name + " " + l, nil
	case wasm.BrTableImm:
		parts := []string{info.Name}
		for _, d := range append(append([]uint32{}, imm.Labels...), imm.Default) {
			l, err := p.label(d)
			if err != nil {
				return "", err
			}
			parts = append(parts, l)
		}
		return strings.Join(parts, " "), nil
	case wasm.CallImm:
		name, err := p.funcName(imm.FuncIdx)
		if err != nil {
			return "", err
		}
		return info.Name + " " + name, nil
	case wasm.CallIndirectImm:
		if imm.TableIdx != 0 {
			return fmt.Sprintf("%s $table$%d (type $t%d)", info.Name, imm.TableIdx, imm.TypeIdx), nil
		}
		return fmt.Sprintf("%s (type $t%d)", info.Name, imm.TypeIdx), nil
	case wasm.LocalImm:
		return fmt.Sprintf("%s $%d", info.Name, imm.LocalIdx), nil
	case wasm.GlobalImm:
		return fmt.Sprintf("%s $global$%d", info.Name, imm.GlobalIdx), nil
	case wasm.TableImm:
		return fmt.Sprintf("%s $table$%d", info.Name, imm.TableIdx), nil
	case wasm.MemoryImm:
		return info.Name + memarg(imm, info.Align), nil
	case wasm.MemoryIdxImm:
		if imm.MemIdx != 0 {
			return fmt.Sprintf("%s $memory$%d", info.Name, imm.MemIdx), nil
		}
		return info.Name, nil
	case wasm.I32Imm:
		return info.Name + " " + strconv.FormatInt(int64(imm.Value), 10), nil
	case wasm.I64Imm:
		return info.Name + " " + strconv.FormatInt(imm.Value, 10), nil
	case wasm.F32Imm:
		return info.Name + " " + number.FormatF32(imm.Value), nil
	case wasm.F64Imm:
		return info.Name + " " + number.FormatF64(imm.Value), nil
	case wasm.RefNullImm:
		switch imm.HeapType {
		case wasm.HeapTypeFunc:
			return info.Name + " func", nil
		case wasm.HeapTypeExtern:
			return info.Name + " extern", nil
		}
		return "", fmt.Errorf("ref.null: unsupported heap type %d", imm.HeapType)
	case wasm.SelectTypeImm:
		types := make([]string, len(imm.Types))
		for i, t := range imm.Types {
			types[i] = t.String()
		}
		return info.Name + " (result " + strings.Join(types, " ") + ")", nil
	case wasm.MiscImm:
		return miscText(info, imm)
	}
	return "", fmt.Errorf("%s: unexpected immediate %T", info.Name, in.Imm)
}

func miscText(info wasm.OpInfo, imm wasm.MiscImm) (string, error) {
	ops := imm.Operands
	if len(ops) < miscArity(info.Imm) {
		return "", fmt.Errorf("%s: missing operands", info.Name)
	}
	switch info.Imm {
	case wasm.ImmNone:
		return info.Name, nil
	case wasm.ImmDataMem:
		if ops[1] != 0 {
			return fmt.Sprintf("%s $memory$%d %d", info.Name, ops[1], ops[0]), nil
		}
		return fmt.Sprintf("%s %d", info.Name, ops[0]), nil
	case wasm.ImmElemTable:
		if ops[1] != 0 {
			return fmt.Sprintf("%s $table$%d %d", info.Name, ops[1], ops[0]), nil
		}
		return fmt.Sprintf("%s %d", info.Name, ops[0]), nil
	case wasm.ImmData, wasm.ImmElem:
		return fmt.Sprintf("%s %d", info.Name, ops[0]), nil
	case wasm.ImmMemIdx:
		if ops[0] != 0 {
			return fmt.Sprintf("%s $memory$%d", info.Name, ops[0]), nil
		}
		return info.Name, nil
	case wasm.ImmMemMem:
		if ops[0] != 0 || ops[1] != 0 {
			return fmt.Sprintf("%s $memory$%d $memory$%d", info.Name, ops[0], ops[1]), nil
		}
		return info.Name, nil
	case wasm.ImmTable:
		return fmt.Sprintf("%s $table$%d", info.Name, ops[0]), nil
	case wasm.ImmTableTable:
		return fmt.Sprintf("%s $table$%d $table$%d", info.Name, ops[0], ops[1]), nil
	}
	return "", fmt.Errorf("%s: unexpected immediate kind %d", info.Name, info.Imm)
}

func miscArity(kind wasm.ImmKind) int {
	switch kind {
	case wasm.ImmDataMem, wasm.ImmMemMem, wasm.ImmElemTable, wasm.ImmTableTable:
		return 2
	case wasm.ImmData, wasm.ImmElem, wasm.ImmMemIdx, wasm.ImmTable:
		return 1
	}
	return 0
}

func memarg(imm wasm.MemoryImm, natural uint32) string {
	var s string
	if imm.Offset != 0 {
		s += " offset=" + strconv.FormatUint(uint64(imm.Offset), 10)
	}
	if imm.Align != natural {
		s += " align=" + strconv.FormatUint(uint64(1)<<imm.Align, 10)
	}
	return s
}

func blockType(bt int32) string {
	switch {
	case bt == wasm.BlockTypeVoid:
		return ""
	case bt >= 0:
		return fmt.Sprintf(" (type $t%d)", bt)
	}
	return " (result " + wasm.ValType(byte(bt&0x7f)).String() + ")"
}

func namedParams(i int) string {
	return "$" + strconv.Itoa(i)
}

// signature renders params and results. With names, each parameter gets
// its own (param $N T) clause.
func signature(ft wasm.FuncType, names func(int) string) string {
	var b strings.Builder
	if len(ft.Params) > 0 {
		if names != nil {
			for i, t := range ft.Params {
				fmt.Fprintf(&b, " (param %s %s)", names(i), t)
			}
		} else {
			b.WriteString(" (param")
			for _, t := range ft.Params {
				b.WriteString(" " + t.String())
			}
			b.WriteString(")")
		}
	}
	if len(ft.Results) > 0 {
		b.WriteString(" (result")
		for _, t := range ft.Results {
			b.WriteString(" " + t.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

func limits(l wasm.Limits) string {
	s := strconv.FormatUint(uint64(l.Min), 10)
	if l.Max != nil {
		s += " " + strconv.FormatUint(uint64(*l.Max), 10)
	}
	if l.Shared {
		s += " shared"
	}
	return s
}

func globalType(g wasm.GlobalType) string {
	if g.Mutable {
		return "(mut " + g.ValType.String() + ")"
	}
	return g.ValType.String()
}

// sanitizeID maps a name onto identifier characters, replacing anything
// else with an underscore.
func sanitizeID(name string) string {
	if name == "" {
		return ""
	}
	b := []byte(name)
	for i, c := range b {
		if !isIDChar(c) {
			b[i] = '_'
		}
	}
	return string(b)
}

func isIDChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	return strings.IndexByte("!#$%&'*+-./:<=>?@\\^_`|~", c) >= 0
}
