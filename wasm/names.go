package wasm

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wippyai/bindpost/wasm/internal/binary"
)

// Name section subsection IDs
const (
	nameSubModule   byte = 0
	nameSubFunction byte = 1
	nameSubLocal    byte = 2
)

// Names holds the debug names carried in the "name" custom section.
type Names struct {
	Funcs  map[uint32]string
	Locals map[uint32]map[uint32]string
	Module string
}

// ParseNames decodes the module's name section. A module without one
// yields empty Names. Unknown subsections are skipped.
func (m *Module) ParseNames() (*Names, error) {
	n := &Names{
		Funcs:  map[uint32]string{},
		Locals: map[uint32]map[uint32]string{},
	}
	cs, ok := m.CustomSection(CustomSectionName)
	if !ok {
		return n, nil
	}

	r := binary.NewReader(bytes.NewReader(cs.Data))
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("name subsection %d: %w", id, err)
		}
		sr := binary.NewReader(bytes.NewReader(payload))

		switch id {
		case nameSubModule:
			if n.Module, err = sr.ReadName(); err != nil {
				return nil, err
			}
		case nameSubFunction:
			if n.Funcs, err = readNameMap(sr); err != nil {
				return nil, fmt.Errorf("function names: %w", err)
			}
		case nameSubLocal:
			count, err := sr.ReadU32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < count; i++ {
				fn, err := sr.ReadU32()
				if err != nil {
					return nil, err
				}
				locals, err := readNameMap(sr)
				if err != nil {
					return nil, fmt.Errorf("local names of function %d: %w", fn, err)
				}
				n.Locals[fn] = locals
			}
		}
	}
	return n, nil
}

func readNameMap(r *binary.Reader) (map[uint32]string, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]string, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		out[idx] = name
	}
	return out, nil
}

// Encode serializes the names into name section payload bytes.
func (n *Names) Encode() []byte {
	w := binary.NewWriter()

	if n.Module != "" {
		sub := binary.NewWriter()
		sub.WriteName(n.Module)
		writeSubsection(w, nameSubModule, sub)
	}

	if len(n.Funcs) > 0 {
		sub := binary.NewWriter()
		writeNameMap(sub, n.Funcs)
		writeSubsection(w, nameSubFunction, sub)
	}

	if len(n.Locals) > 0 {
		sub := binary.NewWriter()
		fns := sortedKeys(n.Locals)
		sub.WriteU32(uint32(len(fns)))
		for _, fn := range fns {
			sub.WriteU32(fn)
			writeNameMap(sub, n.Locals[fn])
		}
		writeSubsection(w, nameSubLocal, sub)
	}

	return w.Bytes()
}

// Empty reports whether there is nothing worth encoding.
func (n *Names) Empty() bool {
	return n.Module == "" && len(n.Funcs) == 0 && len(n.Locals) == 0
}

func writeSubsection(w *binary.Writer, id byte, sub *binary.Writer) {
	w.Byte(id)
	w.WriteU32(uint32(sub.Len()))
	w.WriteBytes(sub.Bytes())
}

func writeNameMap(w *binary.Writer, names map[uint32]string) {
	idxs := sortedKeys(names)
	w.WriteU32(uint32(len(idxs)))
	for _, idx := range idxs {
		w.WriteU32(idx)
		w.WriteName(names[idx])
	}
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
