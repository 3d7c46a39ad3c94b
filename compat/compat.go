// Package compat pins the generator versions whose output shape bindpost
// understands.
//
// The edits rely on naming conventions of the bindings generator: the
// "_elements" accessor suffix, the out parameter convention and the -1
// bounds sentinel. These are not a stable interface, so the generator
// version is checked against a Contract before anything is rewritten.
package compat

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/wasm"
)

// DefaultGenerator is the generator whose output shape is supported.
const DefaultGenerator = "wasm-bindgen"

// ProducersField is the producers section field the generator records
// itself under.
const ProducersField = "processed-by"

// Version sources reported by Resolve.
const (
	SourceProducers = "producers"
	SourceDeclared  = "declared"
)

// Contract is a supported version range of one generator. Max is
// exclusive.
type Contract struct {
	Generator string
	Min       semver.Version
	Max       semver.Version
}

// Default returns the contract for wasm-bindgen [0.2.25, 0.2.40).
func Default() Contract {
	return Contract{
		Generator: DefaultGenerator,
		Min:       *semver.New("0.2.25"),
		Max:       *semver.New("0.2.40"),
	}
}

// NewContract builds a contract from version strings. Empty bounds fall
// back to the default range.
func NewContract(generator, min, max string) (Contract, error) {
	c := Default()
	if generator != "" {
		c.Generator = generator
	}
	if min != "" {
		v, err := parseVersion(min)
		if err != nil {
			return Contract{}, fmt.Errorf("min version: %w", err)
		}
		c.Min = *v
	}
	if max != "" {
		v, err := parseVersion(max)
		if err != nil {
			return Contract{}, fmt.Errorf("max version: %w", err)
		}
		c.Max = *v
	}
	if !c.Min.LessThan(c.Max) {
		return Contract{}, fmt.Errorf("empty version range [%s, %s)", c.Min, c.Max)
	}
	return c, nil
}

func (c Contract) String() string {
	return fmt.Sprintf("%s [%s, %s)", c.Generator, c.Min, c.Max)
}

// Allows reports whether v falls inside the range.
func (c Contract) Allows(v semver.Version) bool {
	return !v.LessThan(c.Min) && v.LessThan(c.Max)
}

// Check parses version and tests it against the range.
func (c Contract) Check(version string) (*semver.Version, error) {
	v, err := parseVersion(version)
	if err != nil {
		return nil, errors.IncompatibleGenerator(fmt.Sprintf("unreadable %s version %q", c.Generator, version), err)
	}
	if !c.Allows(*v) {
		return nil, errors.IncompatibleGenerator(fmt.Sprintf("%s %s is outside %s", c.Generator, v, c), nil)
	}
	return v, nil
}

// Match is the outcome of a successful Resolve.
type Match struct {
	Version semver.Version
	Source  string
}

// Resolve determines the generator version of bin and checks it. The
// version recorded in the module's producers section wins; declared is
// used when the section or the generator entry is absent.
func (c Contract) Resolve(bin []byte, declared string) (*Match, error) {
	log := Logger().With(zap.String("generator", c.Generator))

	version, source := "", ""
	if found, ok := c.recorded(bin, log); ok {
		version, source = found, SourceProducers
	} else if declared != "" {
		version, source = declared, SourceDeclared
	}
	if version == "" {
		return nil, errors.IncompatibleGenerator(
			fmt.Sprintf("no %s version recorded in the module and none declared", c.Generator), nil)
	}

	v, err := c.Check(version)
	if err != nil {
		return nil, err
	}
	log.Debug("generator compatible",
		zap.Stringer("version", v),
		zap.String("source", source),
		zap.Stringer("contract", c))
	return &Match{Version: *v, Source: source}, nil
}

// recorded reads the generator version from the producers section. A
// module that cannot be read is left for the transformer to reject.
func (c Contract) recorded(bin []byte, log *zap.Logger) (string, bool) {
	m, err := wasm.ParseModule(bin)
	if err != nil {
		log.Debug("producers lookup skipped", zap.Error(err))
		return "", false
	}
	p, ok, err := m.ParseProducers()
	if err != nil {
		log.Warn("ignoring malformed producers section", zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return p.Lookup(ProducersField, c.Generator)
}

// parseVersion accepts the forms generators record: "0.2.29",
// "v0.2.29" and "0.2.29 (a1b2c3d4e 2018-12-04)".
func parseVersion(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}
	return semver.NewVersion(strings.TrimPrefix(s, "v"))
}
