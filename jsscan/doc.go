// Package jsscan is a structural scanner for generated JS glue and
// TypeScript declaration files.
//
// It is not a JavaScript parser. It tokenizes the source, pairs brackets,
// and recognizes the declarations a bindings generator emits: top-level
// classes with their members, top-level functions, and the JSDoc blocks
// attached to them. Every recognized element carries byte spans into the
// original text so callers can rewrite it through a Patch without
// disturbing the surrounding formatting.
//
//	f, err := jsscan.Parse(src)
//	var p jsscan.Patch
//	for _, c := range f.Classes {
//		if m := c.Member("elements", jsscan.MemberGetter); m != nil {
//			p.Replace(m.Body, newBody)
//		}
//	}
//	out, err := p.Apply(src)
package jsscan
