package sexpr

import (
	"strings"
)

// Kind distinguishes atoms, string literals and lists.
type Kind uint8

const (
	KindAtom Kind = iota
	KindString
	KindList
)

// Node is an element of the S-expression tree. Text holds the atom text
// or, for strings, the raw literal contents with escapes intact. Line is
// the source line the node started on; nodes built in code carry the line
// of the node they replace, or zero.
type Node struct {
	Children []*Node
	Text     string
	Kind     Kind
	Line     int
}

// NewAtom creates an atom node.
func NewAtom(text string) *Node {
	return &Node{Kind: KindAtom, Text: text}
}

// NewList creates a list node.
func NewList(children ...*Node) *Node {
	return &Node{Kind: KindList, Children: children}
}

// NewString creates a string literal node holding data.
func NewString(data []byte) *Node {
	return &Node{Kind: KindString, Text: Escape(data)}
}

// IsList reports whether n is a list whose first child is the atom head.
// An empty head matches any list.
func (n *Node) IsList(head string) bool {
	if n == nil || n.Kind != KindList {
		return false
	}
	return head == "" || n.Head() == head
}

// IsAtom reports whether n is an atom with the given text.
func (n *Node) IsAtom(text string) bool {
	return n != nil && n.Kind == KindAtom && n.Text == text
}

// Head returns the text of a list's leading atom, or "".
func (n *Node) Head() string {
	if n.Kind != KindList || len(n.Children) == 0 || n.Children[0].Kind != KindAtom {
		return ""
	}
	return n.Children[0].Text
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Find returns the first direct child list with the given head.
func (n *Node) Find(head string) *Node {
	for _, c := range n.Children {
		if c.IsList(head) {
			return c
		}
	}
	return nil
}

// ID returns the symbolic identifier ($name) directly after the head of a
// list, or "".
func (n *Node) ID() string {
	if c := n.Child(1); c != nil && c.Kind == KindAtom && strings.HasPrefix(c.Text, "$") {
		return c.Text
	}
	return ""
}

// Bytes decodes a string node's literal contents.
func (n *Node) Bytes() ([]byte, error) {
	return Unescape(n.Text)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return &c
}

// Equal reports whether two trees are structurally identical, ignoring lines.
func Equal(a, b *Node) bool {
	if a.Kind != b.Kind || a.Text != b.Text || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Walk visits n and its descendants depth first. fn receives each node
// with its parent (nil for n) and its index within the parent. Returning
// false skips the node's children.
func Walk(n *Node, fn func(node, parent *Node, idx int) bool) {
	walk(n, nil, -1, fn)
}

func walk(n, parent *Node, idx int, fn func(node, parent *Node, idx int) bool) {
	if !fn(n, parent, idx) {
		return
	}
	for i := 0; i < len(n.Children); i++ {
		walk(n.Children[i], n, i, fn)
	}
}

// Splice replaces count children of n starting at idx with repl.
func (n *Node) Splice(idx, count int, repl ...*Node) {
	tail := append([]*Node{}, n.Children[idx+count:]...)
	n.Children = append(append(n.Children[:idx], repl...), tail...)
}

// SetLine sets the line of n and all its descendants.
func (n *Node) SetLine(line int) *Node {
	n.Line = line
	for _, c := range n.Children {
		c.SetLine(line)
	}
	return n
}
