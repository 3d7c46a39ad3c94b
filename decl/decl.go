// Package decl rewrites the TypeScript declarations emitted next to the
// glue module so they describe the polished API.
//
// Three edits are applied in one patch set:
//
//   - "get elements(): T;" becomes "readonly elements: T;";
//   - the default-exported init declaration becomes
//     "export function init(): Promise<any>;";
//   - static output-parameter methods, documented with @param {T} out and
//     @returns {void}, now return T.
//
// Each edit must match at least once; a missing pattern means the
// generator output changed shape and the run is refused.
package decl

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/jsscan"
)

// Artifact names the declarations in errors and logs.
const Artifact = "declarations"

// InitDeclaration replaces the generated loader declaration.
const InitDeclaration = "export function init(): Promise<any>;"

// Result is the rewritten declarations and what was changed.
type Result struct {
	Text string
	// Accessors lists the classes whose elements getter became a
	// readonly field.
	Accessors    []string
	OutMethods   []jsscan.MethodRef
	InitNarrowed bool
}

// Rewrite applies the declaration edits to src.
func Rewrite(src string) (*Result, error) {
	f, err := jsscan.Parse(src)
	if err != nil {
		return nil, errors.New(errors.PhaseDeclarations, errors.KindInvalidInput).
			Artifact(Artifact).
			Cause(err).
			Detail("scan declarations").
			Build()
	}

	var (
		p   jsscan.Patch
		res = &Result{}
	)

	for _, c := range f.Classes {
		if accessor(c, &p) {
			res.Accessors = append(res.Accessors, c.Name)
		}
	}
	if len(res.Accessors) == 0 {
		return nil, errors.RequiredPatternMissing(errors.PhaseDeclarations, Artifact, "elements accessor declaration")
	}

	if !narrowInit(f, &p) {
		return nil, errors.RequiredPatternMissing(errors.PhaseDeclarations, Artifact, "exported init declaration")
	}
	res.InitNarrowed = true

	for _, c := range f.Classes {
		refs, err := outMethods(c, &p)
		if err != nil {
			return nil, err
		}
		res.OutMethods = append(res.OutMethods, refs...)
	}
	if len(res.OutMethods) == 0 {
		return nil, errors.RequiredPatternMissing(errors.PhaseDeclarations, Artifact, "output-parameter method")
	}

	text, err := p.Apply(src)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDeclarations, errors.KindInvalidInput, err, "apply edits")
	}
	res.Text = text

	sort.Strings(res.Accessors)
	jsscan.SortRefs(res.OutMethods)

	Logger().Debug("declarations rewritten",
		zap.Int("accessors", len(res.Accessors)),
		zap.Int("out_methods", len(res.OutMethods)),
		zap.Int("edits", p.Len()),
	)
	return res, nil
}

// accessor turns the elements getter declaration of c into a readonly
// field. Other modifiers on the member are kept.
func accessor(c *jsscan.Class, p *jsscan.Patch) bool {
	m := c.Member("elements", jsscan.MemberGetter)
	if m == nil || m.HasBody() || m.ReturnType == "" {
		return false
	}
	var b strings.Builder
	for _, mod := range m.Modifiers {
		if mod == "get" || mod == "readonly" {
			continue
		}
		b.WriteString(mod)
		b.WriteByte(' ')
	}
	b.WriteString("readonly elements: ")
	b.WriteString(m.ReturnType)
	b.WriteByte(';')
	p.Replace(m.Span, b.String())
	return true
}

func narrowInit(f *jsscan.File, p *jsscan.Patch) bool {
	fn := f.Function("init")
	if fn == nil || fn.HasBody() || !fn.Exported {
		return false
	}
	p.Replace(fn.Span, InitDeclaration)
	return true
}

func outMethods(c *jsscan.Class, p *jsscan.Patch) ([]jsscan.MethodRef, error) {
	var refs []jsscan.MethodRef
	for _, op := range jsscan.OutParams(c) {
		m := op.Member
		if m.HasBody() {
			continue
		}
		if declared := m.Params[0].Type; declared != "" && declared != op.Type {
			return nil, errors.New(errors.PhaseDeclarations, errors.KindInconsistent).
				Artifact(Artifact).
				Path(c.Name, m.Name).
				Detail("out is declared %s but documented as %s", declared, op.Type).
				Build()
		}

		p.Replace(op.Ret.TypeSpan, op.Type)
		if m.ReturnSpan.Empty() {
			p.Insert(m.ParamsSpan.End, ": "+op.Type)
		} else {
			p.Replace(m.ReturnSpan, op.Type)
		}
		refs = append(refs, jsscan.MethodRef{Class: c.Name, Method: m.Name, Type: op.Type})
	}
	return refs, nil
}
