package modpass

import (
	"strings"

	"github.com/wippyai/bindpost/wat/sexpr"
)

// removeDeadBranches rewrites every bounds-check branch of the shape
//
//	(br_if L (i32.eq (local.tee $x (i32.load (local.get $y))) (i32.const -1)))
//
// and its flat equivalent into a plain local.set of the same load. The
// assignment to $x survives; only the comparison and branch go.
func removeDeadBranches(root *sexpr.Node) int {
	count := 0
	sexpr.Walk(root, func(n, parent *sexpr.Node, idx int) bool {
		if n.Kind != sexpr.KindList {
			return false
		}
		if parent != nil {
			if repl := foldedIdiom(n); repl != nil {
				parent.Children[idx] = repl
				count++
				return false
			}
		}
		count += flatIdioms(n)
		return true
	})
	return count
}

func isLocalOp(n *sexpr.Node, op string) bool {
	return n != nil && n.Kind == sexpr.KindAtom && (n.Text == "local."+op || n.Text == op+"_local")
}

func setFor(tee string) string {
	if tee == "tee_local" {
		return "set_local"
	}
	return "local.set"
}

func isIndex(n *sexpr.Node) bool {
	return n != nil && n.Kind == sexpr.KindAtom && n.Text != "" &&
		(n.Text[0] == '$' || (n.Text[0] >= '0' && n.Text[0] <= '9'))
}

func isMemarg(n *sexpr.Node) bool {
	return n.Kind == sexpr.KindAtom &&
		(strings.HasPrefix(n.Text, "offset=") || strings.HasPrefix(n.Text, "align="))
}

func isSentinel(text string) bool {
	switch text {
	case "-1", "0xffffffff", "0xFFFFFFFF", "4294967295":
		return true
	}
	return false
}

// foldedIdiom returns the replacement for a folded bounds-check branch,
// or nil when n does not have that shape.
func foldedIdiom(n *sexpr.Node) *sexpr.Node {
	if !n.IsList("br_if") || len(n.Children) != 3 || !isIndex(n.Children[1]) {
		return nil
	}
	eq := n.Children[2]
	if !eq.IsList("i32.eq") || len(eq.Children) != 3 {
		return nil
	}
	tee, sentinel := eq.Children[1], eq.Children[2]
	if !sentinel.IsList("i32.const") || len(sentinel.Children) != 2 || !isSentinel(sentinel.Children[1].Text) {
		return nil
	}
	if tee.Kind != sexpr.KindList || len(tee.Children) != 3 || !isLocalOp(tee.Children[0], "tee") || !isIndex(tee.Children[1]) {
		return nil
	}
	load := tee.Children[2]
	if !load.IsList("i32.load") || len(load.Children) < 2 {
		return nil
	}
	for _, c := range load.Children[1 : len(load.Children)-1] {
		if !isMemarg(c) {
			return nil
		}
	}
	get := load.Children[len(load.Children)-1]
	if get.Kind != sexpr.KindList || len(get.Children) != 2 || !isLocalOp(get.Children[0], "get") || !isIndex(get.Children[1]) {
		return nil
	}

	set := sexpr.NewAtom(setFor(tee.Children[0].Text))
	set.Line = n.Line
	local := *tee.Children[1]
	local.Line = n.Line
	return &sexpr.Node{
		Kind:     sexpr.KindList,
		Line:     n.Line,
		Children: []*sexpr.Node{set, &local, load},
	}
}

// flatIdioms rewrites the flat bounds-check sequences among n's children:
//
//	local.get $y  i32.load ...  local.tee $x  i32.const -1  i32.eq  br_if L
//
// becomes local.get $y  i32.load ...  local.set $x.
func flatIdioms(n *sexpr.Node) int {
	count := 0
	nodes := n.Children
	for i := 0; i < len(nodes); i++ {
		end, tee, ok := flatIdiomAt(nodes, i)
		if !ok {
			continue
		}
		nodes[tee].Text = setFor(nodes[tee].Text)
		// drop i32.const -1 i32.eq br_if L
		n.Splice(tee+2, end-(tee+2))
		nodes = n.Children
		count++
		i = tee + 1
	}
	return count
}

// flatIdiomAt matches a flat bounds-check starting at i. It returns the
// index just past the branch label and the index of the tee atom.
func flatIdiomAt(nodes []*sexpr.Node, i int) (end, tee int, ok bool) {
	at := func(j int) *sexpr.Node {
		if j < len(nodes) {
			return nodes[j]
		}
		return nil
	}
	if !isLocalOp(at(i), "get") || !isIndex(at(i+1)) || !at(i+2).IsAtom("i32.load") {
		return 0, 0, false
	}
	j := i + 3
	for j < len(nodes) && isMemarg(nodes[j]) {
		j++
	}
	tee = j
	if !isLocalOp(at(j), "tee") || !isIndex(at(j+1)) {
		return 0, 0, false
	}
	if !at(j+2).IsAtom("i32.const") || at(j+3) == nil || at(j+3).Kind != sexpr.KindAtom || !isSentinel(at(j+3).Text) {
		return 0, 0, false
	}
	if !at(j+4).IsAtom("i32.eq") || !at(j+5).IsAtom("br_if") || !isIndex(at(j+6)) {
		return 0, 0, false
	}
	return j + 7, tee, true
}
