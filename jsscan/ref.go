package jsscan

import "sort"

// MethodRef names a rewritten output-parameter method and the type it
// now returns.
type MethodRef struct {
	Class  string
	Method string
	Type   string
}

// Key identifies the method independently of its type.
func (r MethodRef) Key() string {
	return r.Class + "." + r.Method
}

func (r MethodRef) String() string {
	return r.Key() + ": " + r.Type
}

// SortRefs orders refs by class, then method.
func SortRefs(refs []MethodRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Class != refs[j].Class {
			return refs[i].Class < refs[j].Class
		}
		return refs[i].Method < refs[j].Method
	})
}

// OutParam describes a static method following the output-parameter
// convention: first parameter named out, documented as @param {T} out,
// documented and declared as returning void.
type OutParam struct {
	Member *Member
	Tag    *Tag // the @param tag for out
	Ret    *Tag // the @returns tag
	Type   string
}

// OutParams lists the output-parameter methods of c.
func OutParams(c *Class) []OutParam {
	var out []OutParam
	for _, m := range c.Members {
		if op, ok := outParam(m); ok {
			out = append(out, op)
		}
	}
	return out
}

func outParam(m *Member) (OutParam, bool) {
	if m.Kind != MemberMethod || !m.Static || len(m.Params) == 0 || m.Params[0].Name != "out" {
		return OutParam{}, false
	}
	tag := m.Doc.Param("out")
	ret := m.Doc.Returns()
	if tag == nil || tag.Type == "" || ret == nil || ret.Type != "void" {
		return OutParam{}, false
	}
	if m.ReturnType != "" && m.ReturnType != "void" {
		return OutParam{}, false
	}
	return OutParam{Member: m, Tag: tag, Ret: ret, Type: tag.Type}, true
}
