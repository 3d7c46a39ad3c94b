// Package config loads the bindpost.yaml project configuration.
//
// Every field is optional. A missing file yields Default(), rooted at the
// working directory; relative paths in a file are resolved against the
// directory containing it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/bindpost/compat"
	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/offsets"
	"github.com/wippyai/bindpost/toolchain"
)

// FileName is the configuration file searched for by Find.
const FileName = "bindpost.yaml"

// ManifestName is the run manifest written into the artifact directory.
const ManifestName = "bindpost.manifest.yaml"

// Config is the top-level bindpost.yaml configuration.
type Config struct {
	// Dir is the artifact directory produced by the bindings generator.
	Dir string `yaml:"dir"`

	// Name is the generator's out-name; every artifact file name derives
	// from it.
	Name string `yaml:"name"`

	// Package is the package.json the header banner is rendered from.
	// Empty disables the banner unless Header.Template is set.
	Package string `yaml:"package"`

	// Toolchain selects the module optimizer: native or binaryen.
	Toolchain string    `yaml:"toolchain"`
	Binaryen  Binaryen  `yaml:"binaryen"`
	Optimize  Optimize  `yaml:"optimize"`
	Generator Generator `yaml:"generator"`
	Header    Header    `yaml:"header"`
	Split     Split     `yaml:"split"`

	// Offsets adds lane counts to, or overrides, the default offset table.
	Offsets map[string]int `yaml:"offsets,omitempty"`

	// Manifest controls writing bindpost.manifest.yaml. Defaults to true.
	Manifest *bool `yaml:"manifest,omitempty"`

	// Root is the directory relative paths are resolved against.
	Root string `yaml:"-"`
	// Source is the file the configuration was loaded from, if any.
	Source string `yaml:"-"`
}

// Binaryen configures the external toolchain.
type Binaryen struct {
	// BinDir holds wasm-opt, wasm-dis and wasm-as. Empty searches PATH.
	BinDir string `yaml:"bin_dir"`
}

// Optimize carries the optimizer knobs. The pass runs with both at zero.
type Optimize struct {
	Level  int `yaml:"level"`
	Shrink int `yaml:"shrink"`
}

// Generator pins the bindings generator version range.
type Generator struct {
	Name string `yaml:"name"`
	// Version is used when the module does not record its generator.
	Version string `yaml:"version"`
	Min     string `yaml:"min"`
	Max     string `yaml:"max"`
}

// Header configures the license banner prepended to text artifacts.
type Header struct {
	Copyright string `yaml:"copyright"`
	// Template replaces the default banner; see Banner for its fields.
	Template string `yaml:"template"`
}

// Split configures the Split variant.
type Split struct {
	// Import is the specifier the wasm exports are imported from.
	// Defaults to ./<name>_bg.
	Import string `yaml:"import"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Dir:       "pkg",
		Name:      "gl_matrix_wasm",
		Package:   "package.json",
		Toolchain: toolchain.NameNative,
		Generator: Generator{Name: compat.DefaultGenerator},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, path, err)
	}
	return Parse(data, path)
}

// Parse parses bindpost.yaml content over the defaults. The path is used
// for error messages and as the root for relative paths.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Artifact(path).
			Cause(err).
			Detail("parse configuration").
			Build()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, path, err)
	}
	cfg.Source = abs
	cfg.Root = filepath.Dir(abs)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find searches for bindpost.yaml starting at dir and walking up to the
// filesystem root. It returns "" when there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Discover loads the configuration found from dir, or the defaults
// rooted at dir.
func Discover(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, dir, err)
	}
	if path != "" {
		return Load(path)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, dir, err)
	}
	cfg := Default()
	cfg.Root = root
	return cfg, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Artifact(c.Source).
			Path(field).
			Detail(format, args...).
			Build()
	}

	if c.Dir == "" {
		return invalid("dir", "artifact directory is required")
	}
	if !namePattern.MatchString(c.Name) {
		return invalid("name", "%q is not a usable file name stem", c.Name)
	}
	switch c.Toolchain {
	case toolchain.NameNative, toolchain.NameBinaryen:
	default:
		return invalid("toolchain", "unknown toolchain %q (want %s or %s)", c.Toolchain, toolchain.NameNative, toolchain.NameBinaryen)
	}
	if c.Optimize.Level < 0 || c.Optimize.Level > 4 {
		return invalid("optimize.level", "level %d is outside 0..4", c.Optimize.Level)
	}
	if c.Optimize.Shrink < 0 || c.Optimize.Shrink > 2 {
		return invalid("optimize.shrink", "shrink %d is outside 0..2", c.Optimize.Shrink)
	}
	if _, err := c.Contract(); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Artifact(c.Source).
			Path("generator").
			Cause(err).
			Build()
	}
	if err := c.Table().Validate(); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Artifact(c.Source).
			Path("offsets").
			Cause(err).
			Build()
	}
	return nil
}

// Contract returns the generator compatibility contract.
func (c *Config) Contract() (compat.Contract, error) {
	return compat.NewContract(c.Generator.Name, c.Generator.Min, c.Generator.Max)
}

// Table returns the default offset table merged with Offsets.
func (c *Config) Table() offsets.Table {
	t := make(offsets.Table, len(offsets.Default)+len(c.Offsets))
	for name, n := range offsets.Default {
		t[name] = n
	}
	for name, n := range c.Offsets {
		t[name] = n
	}
	return t
}

// Options returns the optimizer options.
func (c *Config) Options() toolchain.Options {
	return toolchain.Options{OptimizeLevel: c.Optimize.Level, ShrinkLevel: c.Optimize.Shrink}
}

// NewToolchain builds the configured toolchain.
func (c *Config) NewToolchain() (toolchain.Toolchain, error) {
	return toolchain.New(c.Toolchain, c.resolve(c.Binaryen.BinDir))
}

// SplitImport returns the module specifier used by the Split variant.
func (c *Config) SplitImport() string {
	if c.Split.Import != "" {
		return c.Split.Import
	}
	return "./" + c.Name + "_bg"
}

// WriteManifest reports whether the run manifest is written.
func (c *Config) WriteManifest() bool {
	return c.Manifest == nil || *c.Manifest
}

// PackagePath returns the resolved package.json path, or "".
func (c *Config) PackagePath() string {
	return c.resolve(c.Package)
}

// ArtifactDir returns the resolved artifact directory.
func (c *Config) ArtifactDir() string {
	return c.resolve(c.Dir)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Files are the artifact paths of one bindings package.
type Files struct {
	Wasm     string // <name>_bg.wasm, rewritten in place
	Text     string // <name>_bg.wast, the edited text form
	JS       string // <name>.js, glue; rewritten as the Inlined variant
	SplitJS  string // <name>.split.js
	Decl     string // <name>.d.ts
	BgDecl   string // <name>_bg.d.ts
	Manifest string
}

// Files returns the artifact paths.
func (c *Config) Files() Files {
	dir := c.ArtifactDir()
	join := func(suffix string) string { return filepath.Join(dir, c.Name+suffix) }
	return Files{
		Wasm:     join("_bg.wasm"),
		Text:     join("_bg.wast"),
		JS:       join(".js"),
		SplitJS:  join(".split.js"),
		Decl:     join(".d.ts"),
		BgDecl:   join("_bg.d.ts"),
		Manifest: filepath.Join(dir, ManifestName),
	}
}
