package modpass

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/wat/sexpr"
)

// removeStubExports deletes every function export whose name ends in the
// stub suffix, both module-level export fields and inline (export "...")
// clauses on func fields.
func removeStubExports(root *sexpr.Node) int {
	removed := 0
	kept := root.Children[:0]
	for _, field := range root.Children {
		if field.IsList("export") && isStubExportName(field.Child(1)) && field.Child(2).IsList("func") {
			removed++
			continue
		}
		if field.IsList("func") {
			removed += removeInlineStubExports(field)
		}
		kept = append(kept, field)
	}
	root.Children = kept
	return removed
}

func removeInlineStubExports(fn *sexpr.Node) int {
	removed := 0
	kept := fn.Children[:0]
	for _, c := range fn.Children {
		if c.IsList("export") && isStubExportName(c.Child(1)) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	fn.Children = kept
	return removed
}

func isStubExportName(n *sexpr.Node) bool {
	if n == nil || n.Kind != sexpr.KindString {
		return false
	}
	name, err := n.Bytes()
	return err == nil && strings.HasSuffix(string(name), StubSuffix)
}

// isStub reports whether fn is a generated accessor stub: named with the
// stub suffix, taking exactly (i32, i32), with a body whose last
// top-level instruction is unreachable. Generated getters keep their
// guarded early-return block ahead of the trap, so only the tail is
// checked.
func isStub(fn *sexpr.Node) bool {
	id := fn.ID()
	if !strings.HasSuffix(id, StubSuffix) {
		return false
	}
	var params []string
	var body []*sexpr.Node
	for _, c := range fn.Children[2:] {
		switch {
		case c.IsList("type"), c.IsList("export"), c.IsList("result"), c.IsList("local"):
		case c.IsList("import"):
			return false
		case c.IsList("param"):
			params = append(params, paramTypes(c)...)
		default:
			body = append(body, c)
		}
	}
	if len(params) != 2 || params[0] != "i32" || params[1] != "i32" {
		return false
	}
	if len(body) == 0 {
		return false
	}
	b := body[len(body)-1]
	return b.IsAtom("unreachable") || (b.IsList("unreachable") && len(b.Children) == 1)
}

// paramTypes lists the value types of a (param ...) clause. A named clause
// declares exactly one parameter.
func paramTypes(p *sexpr.Node) []string {
	var types []string
	rest := p.Children[1:]
	if p.ID() != "" {
		rest = rest[1:]
	}
	for _, c := range rest {
		types = append(types, c.Text)
	}
	return types
}

// removeStubs deletes stub function fields. Export clauses have already
// been stripped, so any remaining occurrence of a stub's identifier is a
// live reference (call, element segment, ref.func, surviving export) and
// the stub is kept.
func removeStubs(root *sexpr.Node, log *zap.Logger) (removed, kept int) {
	stubs := map[string]bool{}
	for _, field := range root.Children {
		if field.IsList("func") && isStub(field) {
			stubs[field.ID()] = true
		}
	}
	if len(stubs) == 0 {
		return 0, 0
	}

	refs := map[string]int{}
	sexpr.Walk(root, func(n, parent *sexpr.Node, idx int) bool {
		if n.Kind != sexpr.KindAtom || !stubs[n.Text] {
			return true
		}
		// the defining field's own identifier
		if idx == 1 && parent.IsList("func") {
			return true
		}
		refs[n.Text]++
		return true
	})

	out := root.Children[:0]
	for _, field := range root.Children {
		if field.IsList("func") && stubs[field.ID()] {
			id := field.ID()
			if n := refs[id]; n > 0 {
				log.Warn("keeping referenced accessor stub",
					zap.String("func", id), zap.Int("references", n))
				kept++
				out = append(out, field)
				continue
			}
			removed++
			continue
		}
		out = append(out, field)
	}
	root.Children = out
	return removed, kept
}
