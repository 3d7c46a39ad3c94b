// Package offsets holds the lane counts of the fixed-size value types.
//
// Every fixed-size type stores one control word followed by its packed
// float32 lanes, so a direct read of an instance at pointer ptr covers
// lanes [StartIndex(ptr), StartIndex(ptr)+Table[type]).
package offsets

import (
	"fmt"
	"sort"
)

// Table maps a value type name to the number of 32-bit lanes it occupies.
type Table map[string]int

// Default is the table for the gl-matrix value types.
var Default = Table{
	"Matrix2":     4,
	"Matrix2d":    6,
	"Matrix3":     9,
	"Matrix4":     16,
	"Vector2":     2,
	"Vector3":     3,
	"Vector4":     4,
	"Quaternion":  4,
	"Quaternion2": 8,
}

// Lanes returns the lane count for a type name.
func (t Table) Lanes(name string) (int, bool) {
	n, ok := t[name]
	return n, ok
}

// Names returns the type names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects empty names and non-positive lane counts.
func (t Table) Validate() error {
	for _, name := range t.Names() {
		if name == "" {
			return fmt.Errorf("offset table: empty type name")
		}
		if t[name] <= 0 {
			return fmt.Errorf("offset table: %s has %d lanes", name, t[name])
		}
	}
	return nil
}

// StartIndex converts an instance pointer into the index of its first
// float32 lane: the pointer in lanes, plus one for the control word.
func StartIndex(ptr uint32) uint32 {
	return ptr/4 + 1
}
