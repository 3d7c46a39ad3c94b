package pipeline

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/wippyai/bindpost/decl"
	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/glue"
	"github.com/wippyai/bindpost/jsscan"
)

// checkConsistency cross-checks the declaration and glue rewrites. Every
// class whose accessor now reads memory must be declared readonly, and
// both sides must agree on the output-parameter methods and their types.
// All mismatches are reported together.
func checkConsistency(d *decl.Result, g *glue.Result) error {
	var errs error

	declared := make(map[string]bool, len(d.Accessors))
	for _, name := range d.Accessors {
		declared[name] = true
	}
	for _, name := range g.Accessors {
		if !declared[name] {
			errs = multierr.Append(errs, errors.Inconsistent(errors.PhaseVerify, []string{name, "elements"},
				"glue reads memory directly but the declaration is not readonly"))
		}
	}

	declMethods := refIndex(d.OutMethods)
	glueMethods := refIndex(g.OutMethods)
	for _, key := range unionKeys(declMethods, glueMethods) {
		dr, inDecl := declMethods[key]
		gr, inGlue := glueMethods[key]
		switch {
		case !inGlue:
			errs = multierr.Append(errs, errors.Inconsistent(errors.PhaseVerify, []string{dr.Class, dr.Method},
				"declared as returning out but not rewritten in the glue"))
		case !inDecl:
			errs = multierr.Append(errs, errors.Inconsistent(errors.PhaseVerify, []string{gr.Class, gr.Method},
				"rewritten in the glue but not in the declarations"))
		case dr.Type != gr.Type:
			errs = multierr.Append(errs, errors.Inconsistent(errors.PhaseVerify, []string{dr.Class, dr.Method},
				fmt.Sprintf("declarations return %s, glue documents %s", dr.Type, gr.Type)))
		}
	}

	if errs == nil {
		return nil
	}
	n := len(multierr.Errors(errs))
	return errors.New(errors.PhaseVerify, errors.KindInconsistent).
		Cause(errs).
		Detail("%d mismatches between declarations and glue", n).
		Build()
}

func refIndex(refs []jsscan.MethodRef) map[string]jsscan.MethodRef {
	m := make(map[string]jsscan.MethodRef, len(refs))
	for _, r := range refs {
		m[r.Key()] = r
	}
	return m
}

func unionKeys(a, b map[string]jsscan.MethodRef) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
