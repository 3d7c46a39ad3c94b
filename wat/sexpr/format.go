package sexpr

import "strings"

// Format serializes nodes back to text. A child that started on a later
// source line than its previous sibling is placed on a new line, indented
// one space per nesting level, so parsed text keeps its layout.
func Format(nodes ...*Node) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		format(&b, n, 0)
	}
	b.WriteByte('\n')
	return b.String()
}

// String returns the serialized form of a single node.
func (n *Node) String() string {
	var b strings.Builder
	format(&b, n, 0)
	return b.String()
}

func format(b *strings.Builder, n *Node, depth int) {
	switch n.Kind {
	case KindAtom:
		b.WriteString(n.Text)
		return
	case KindString:
		b.WriteByte('"')
		b.WriteString(n.Text)
		b.WriteByte('"')
		return
	}

	b.WriteByte('(')
	broke := false
	for i, c := range n.Children {
		if i > 0 {
			prev := n.Children[i-1]
			if c.Line > 0 && prev.Line > 0 && c.Line > lastLine(prev) {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat(" ", depth+1))
				broke = true
			} else {
				b.WriteByte(' ')
			}
		}
		format(b, c, depth+1)
	}
	if broke && n.Line > 0 && closesOwnLine(n) {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", depth))
	}
	b.WriteByte(')')
}

// lastLine returns the largest line number within n.
func lastLine(n *Node) int {
	line := n.Line
	for _, c := range n.Children {
		if l := lastLine(c); l > line {
			line = l
		}
	}
	return line
}

// closesOwnLine reports whether a multi-line list had its closing paren
// on a line of its own, which the printer does for module and func.
func closesOwnLine(n *Node) bool {
	switch n.Head() {
	case "module", "func":
		return true
	}
	return false
}
