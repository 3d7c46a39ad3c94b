package glue

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/jsscan"
	"github.com/wippyai/bindpost/offsets"
)

// Artifact names the glue module in errors and logs.
const Artifact = "glue"

// LoaderName is the name the generated loader is renamed to.
const LoaderName = "initModule"

// Options configures the rewrite and the variants emitted from it.
type Options struct {
	// SplitImport is the module specifier the Split variant imports the
	// wasm exports from, e.g. "./gl_matrix_wasm_bg".
	SplitImport string
}

// Result is the rewritten glue module, before variant emission.
type Result struct {
	Text string
	// Accessors lists the classes whose elements getter now reads memory
	// directly.
	Accessors []string
	// Skipped lists classes with an elements getter but no offset table
	// entry.
	Skipped    []string
	OutMethods []jsscan.MethodRef

	opts Options
}

// Rewrite applies the accessor, loader and output-parameter edits to the
// glue module src.
func Rewrite(src string, table offsets.Table, opts Options) (*Result, error) {
	f, err := jsscan.Parse(src)
	if err != nil {
		return nil, errors.New(errors.PhaseGlue, errors.KindInvalidInput).
			Artifact(Artifact).
			Cause(err).
			Detail("scan glue module").
			Build()
	}

	var (
		p   jsscan.Patch
		res = &Result{opts: opts}
		log = Logger()
	)

	for _, c := range f.Classes {
		m := c.Member("elements", jsscan.MemberGetter)
		if m == nil || !m.HasBody() {
			continue
		}
		lanes, ok := table.Lanes(c.Name)
		if !ok {
			log.Warn("leaving elements accessor as generated",
				zap.String("class", c.Name),
				zap.String("reason", "no offset table entry"))
			res.Skipped = append(res.Skipped, c.Name)
			continue
		}
		p.Replace(m.Body, accessorBody(jsscan.LineIndent(src, m.Span.Start), lanes))
		res.Accessors = append(res.Accessors, c.Name)
	}
	if len(res.Accessors) == 0 {
		return nil, errors.RequiredPatternMissing(errors.PhaseGlue, Artifact, "elements accessor in a known class")
	}

	if err := renameLoader(f, &p); err != nil {
		return nil, err
	}

	for _, c := range f.Classes {
		refs, err := outMethods(f, c, &p)
		if err != nil {
			return nil, err
		}
		res.OutMethods = append(res.OutMethods, refs...)
	}
	if len(res.OutMethods) == 0 {
		return nil, errors.RequiredPatternMissing(errors.PhaseGlue, Artifact, "output-parameter method")
	}

	text, err := p.Apply(src)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGlue, errors.KindInvalidInput, err, "apply edits")
	}
	res.Text = text

	sort.Strings(res.Accessors)
	sort.Strings(res.Skipped)
	jsscan.SortRefs(res.OutMethods)

	log.Debug("glue rewritten",
		zap.Int("accessors", len(res.Accessors)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("out_methods", len(res.OutMethods)),
		zap.Int("edits", p.Len()),
	)
	return res, nil
}

// accessorBody returns a getter body reading lanes float32 values of the
// instance straight out of linear memory.
func accessorBody(indent string, lanes int) string {
	inner := indent + "    "
	return fmt.Sprintf("{\n%sconst ptr = this.ptr / 4 + 1;\n%sreturn new Float32Array(wasm.memory.buffer).slice(ptr, ptr + %d);\n%s}",
		inner, inner, lanes, indent)
}

// renameLoader renames the generated init loader to LoaderName, together
// with its self-references, and removes its exports. The public init is
// supplied by the emitted variant.
func renameLoader(f *jsscan.File, p *jsscan.Patch) error {
	fn := f.Function("init")
	if fn == nil || !fn.HasBody() {
		return errors.RequiredPatternMissing(errors.PhaseGlue, Artifact, "init loader function")
	}
	if f.Function(LoaderName) != nil {
		return errors.New(errors.PhaseGlue, errors.KindInvalidInput).
			Artifact(Artifact).
			Path(LoaderName).
			Detail("loader rename target is already declared").
			Build()
	}

	if !fn.Modifiers.Empty() {
		p.Delete(fn.Modifiers)
	}
	p.Replace(fn.NameSpan, LoaderName)
	for _, ref := range f.IdentsIn(fn.Body, "init") {
		p.Replace(jsscan.Span{Start: ref.Pos, End: ref.End}, LoaderName)
	}
	for _, s := range f.FindTopLevel("export", "default", "init", ";") {
		p.Delete(jsscan.WholeLines(f.Src, s))
	}
	return nil
}

// outMethods makes every output-parameter method of c return its out
// argument: the doc type changes from void to T, the last statement loses
// a leading return keyword, and "return out;" follows it.
func outMethods(f *jsscan.File, c *jsscan.Class, p *jsscan.Patch) ([]jsscan.MethodRef, error) {
	var refs []jsscan.MethodRef
	for _, op := range jsscan.OutParams(c) {
		m := op.Member
		if !m.HasBody() {
			continue
		}
		stmts, err := f.Statements(m.Body)
		if err != nil {
			return nil, errors.New(errors.PhaseGlue, errors.KindInvalidInput).
				Artifact(Artifact).
				Path(c.Name, m.Name).
				Cause(err).
				Build()
		}

		p.Replace(op.Ret.TypeSpan, op.Type)
		if len(stmts) == 0 {
			indent := jsscan.LineIndent(f.Src, m.Span.Start)
			p.Insert(m.Body.Start+1, "\n"+indent+"    return out;\n"+indent)
		} else {
			returnOut(f.Src, stmts[len(stmts)-1], p)
		}
		refs = append(refs, jsscan.MethodRef{Class: c.Name, Method: m.Name, Type: op.Type})
	}
	return refs, nil
}

// returnOut drops the return keyword of the final statement stmt,
// keeping its expression, and appends "return out;" at its indentation.
// A bare "return;" becomes "return out;".
func returnOut(src string, stmt jsscan.Span, p *jsscan.Patch) {
	text := stmt.Text(src)
	if strings.HasPrefix(text, "return") && len(text) > len("return") && !isIdentByte(text[len("return")]) {
		rest := strings.TrimLeft(text[len("return"):], " \t\r\n")
		if rest == ";" {
			p.Replace(stmt, "return out;")
			return
		}
		p.Delete(jsscan.Span{Start: stmt.Start, End: stmt.End - len(rest)})
	}
	p.Insert(stmt.End, "\n"+jsscan.LineIndent(src, stmt.Start)+"return out;")
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
