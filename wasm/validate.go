package wasm

import "fmt"

// Validate checks index references across sections. It does not type-check
// function bodies; wazero compilation covers that.
func (m *Module) Validate() error {
	numTypes := uint32(len(m.Types))
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	numMems := uint32(m.NumImportedMemories() + len(m.Memories))
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d", i, typeIdx)
		}
	}
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}

	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("function count %d does not match code count %d", len(m.Funcs), len(m.Code))
	}

	if m.Start != nil && *m.Start >= numFuncs {
		return fmt.Errorf("start function index %d exceeds function count %d", *m.Start, numFuncs)
	}

	seen := make(map[string]bool, len(m.Exports))
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q", exp.Name)
		}
		seen[exp.Name] = true

		var limit uint32
		switch exp.Kind {
		case KindFunc:
			limit = numFuncs
		case KindTable:
			limit = numTables
		case KindMemory:
			limit = numMems
		case KindGlobal:
			limit = numGlobals
		}
		if exp.Idx >= limit {
			return fmt.Errorf("export %d (%s) references invalid index %d", i, exp.Name, exp.Idx)
		}
	}

	for i, elem := range m.Elements {
		if !elem.Passive() && elem.TableIdx >= numTables {
			return fmt.Errorf("element %d references invalid table %d", i, elem.TableIdx)
		}
		for j, fn := range elem.FuncIdxs {
			if fn >= numFuncs {
				return fmt.Errorf("element %d, entry %d references invalid function index %d", i, j, fn)
			}
		}
	}

	for i, d := range m.Data {
		if d.Flags != 1 && d.MemIdx >= numMems {
			return fmt.Errorf("data segment %d references invalid memory %d", i, d.MemIdx)
		}
	}

	if m.DataCount != nil && int(*m.DataCount) != len(m.Data) {
		return fmt.Errorf("data count %d does not match data segment count %d", *m.DataCount, len(m.Data))
	}

	return nil
}
