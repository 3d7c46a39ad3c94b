package jsscan

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces the source covered by Span with Text.
type Edit struct {
	Text string
	Span Span
}

// Patch collects non-overlapping edits against one source text and
// applies them in a single pass.
type Patch struct {
	edits []Edit
}

// Replace schedules replacing s with text.
func (p *Patch) Replace(s Span, text string) {
	p.edits = append(p.edits, Edit{Span: s, Text: text})
}

// Insert schedules inserting text at pos.
func (p *Patch) Insert(pos int, text string) {
	p.edits = append(p.edits, Edit{Span: Span{pos, pos}, Text: text})
}

// Delete schedules removing s.
func (p *Patch) Delete(s Span) {
	p.edits = append(p.edits, Edit{Span: s})
}

// Len returns the number of scheduled edits.
func (p *Patch) Len() int {
	return len(p.edits)
}

// Apply returns src with every edit applied. Edits may be scheduled in
// any order; overlapping edits are an error. Insertions at the same
// position are applied in scheduling order.
func (p *Patch) Apply(src string) (string, error) {
	edits := append([]Edit(nil), p.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Span.Start < edits[j].Span.Start
	})

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for i, e := range edits {
		if e.Span.Start < pos || e.Span.End < e.Span.Start || e.Span.End > len(src) {
			return "", fmt.Errorf("edit %d [%d,%d) overlaps or is out of range", i, e.Span.Start, e.Span.End)
		}
		b.WriteString(src[pos:e.Span.Start])
		b.WriteString(e.Text)
		pos = e.Span.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}
