// Package sexpr is the S-expression tree of the WebAssembly text form.
//
// It is the editing surface for structural rewrites of module text: Parse
// builds a tree of atoms, string literals and lists, callers locate and
// splice nodes, and Format writes the tree back out. Atoms and string
// literals are kept verbatim, so a parse/format cycle without edits
// preserves every token.
//
//	roots, err := sexpr.Parse(text)
//	sexpr.Walk(roots[0], func(n, parent *sexpr.Node, idx int) bool {
//		if n.IsList("export") { ... }
//		return true
//	})
//	out := sexpr.Format(roots...)
package sexpr
