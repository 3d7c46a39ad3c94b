package wasm

import (
	"bytes"
	"fmt"

	"github.com/wippyai/bindpost/wasm/internal/binary"
)

// Producer is a single tool entry of the producers section.
type Producer struct {
	Name    string
	Version string
}

// Producers maps a field name ("language", "processed-by", "sdk") to its
// tool entries, in section order.
type Producers map[string][]Producer

// ParseProducers decodes the producers custom section. ok is false when the
// module carries none.
func (m *Module) ParseProducers() (p Producers, ok bool, err error) {
	cs, found := m.CustomSection(CustomSectionProducers)
	if !found {
		return nil, false, nil
	}

	r := binary.NewReader(bytes.NewReader(cs.Data))
	fields, err := r.ReadU32()
	if err != nil {
		return nil, true, fmt.Errorf("producers: %w", err)
	}
	p = make(Producers, fields)
	for i := uint32(0); i < fields; i++ {
		field, err := r.ReadName()
		if err != nil {
			return nil, true, fmt.Errorf("producers field %d: %w", i, err)
		}
		n, err := r.ReadU32()
		if err != nil {
			return nil, true, err
		}
		for j := uint32(0); j < n; j++ {
			name, err := r.ReadName()
			if err != nil {
				return nil, true, fmt.Errorf("producers %s: %w", field, err)
			}
			version, err := r.ReadName()
			if err != nil {
				return nil, true, fmt.Errorf("producers %s: %w", field, err)
			}
			p[field] = append(p[field], Producer{Name: name, Version: version})
		}
	}
	return p, true, nil
}

// Lookup returns the version recorded for tool under field.
func (p Producers) Lookup(field, tool string) (string, bool) {
	for _, e := range p[field] {
		if e.Name == tool {
			return e.Version, true
		}
	}
	return "", false
}

// EncodeProducers serializes producer fields in the given field order.
func EncodeProducers(fields []string, p Producers) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(fields)))
	for _, f := range fields {
		w.WriteName(f)
		w.WriteU32(uint32(len(p[f])))
		for _, e := range p[f] {
			w.WriteName(e.Name)
			w.WriteName(e.Version)
		}
	}
	return w.Bytes()
}
