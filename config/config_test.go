package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/toolchain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse([]byte("# empty\n"), filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Dir != "pkg" || cfg.Name != "gl_matrix_wasm" || cfg.Toolchain != toolchain.NameNative {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Root != dir {
		t.Errorf("root = %q, want %q", cfg.Root, dir)
	}
	if !cfg.WriteManifest() {
		t.Error("manifest disabled by default")
	}
	if cfg.SplitImport() != "./gl_matrix_wasm_bg" {
		t.Errorf("split import = %q", cfg.SplitImport())
	}
	if cfg.Options() != (toolchain.Options{}) {
		t.Errorf("options = %+v", cfg.Options())
	}

	f := cfg.Files()
	want := Files{
		Wasm:     filepath.Join(dir, "pkg", "gl_matrix_wasm_bg.wasm"),
		Text:     filepath.Join(dir, "pkg", "gl_matrix_wasm_bg.wast"),
		JS:       filepath.Join(dir, "pkg", "gl_matrix_wasm.js"),
		SplitJS:  filepath.Join(dir, "pkg", "gl_matrix_wasm.split.js"),
		Decl:     filepath.Join(dir, "pkg", "gl_matrix_wasm.d.ts"),
		BgDecl:   filepath.Join(dir, "pkg", "gl_matrix_wasm_bg.d.ts"),
		Manifest: filepath.Join(dir, "pkg", ManifestName),
	}
	if f != want {
		t.Errorf("files = %+v\nwant %+v", f, want)
	}
}

func TestParseFull(t *testing.T) {
	dir := t.TempDir()
	src := `
dir: out
name: vecmath
package: meta/package.json
toolchain: binaryen
binaryen: { bin_dir: /opt/binaryen/bin }
optimize: { level: 0, shrink: 0 }
generator: { name: wasm-bindgen, version: "0.2.29", min: 0.2.25, max: 0.2.40 }
header: { copyright: "Copyright (c) Someone" }
split: { import: ./vecmath_wasm }
offsets:
  Matrix4: 16
  Color: 4
manifest: false
`
	cfg, err := Parse([]byte(src), filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ArtifactDir() != filepath.Join(dir, "out") {
		t.Errorf("artifact dir = %q", cfg.ArtifactDir())
	}
	if cfg.PackagePath() != filepath.Join(dir, "meta", "package.json") {
		t.Errorf("package path = %q", cfg.PackagePath())
	}
	if cfg.Binaryen.BinDir != "/opt/binaryen/bin" || cfg.Generator.Version != "0.2.29" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SplitImport() != "./vecmath_wasm" || cfg.WriteManifest() {
		t.Errorf("split=%q manifest=%v", cfg.SplitImport(), cfg.WriteManifest())
	}
	table := cfg.Table()
	if table["Color"] != 4 || table["Vector3"] != 3 || len(table) != 10 {
		t.Errorf("table = %v", table)
	}
	c, err := cfg.Contract()
	if err != nil || c.String() != "wasm-bindgen [0.2.25, 0.2.40)" {
		t.Errorf("contract = %v, %v", c, err)
	}
	if filepath.Base(cfg.Files().Decl) != "vecmath.d.ts" {
		t.Errorf("decl = %q", cfg.Files().Decl)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"empty_dir", `dir: ""`, "dir"},
		{"bad_name", `name: "../x"`, "name"},
		{"toolchain", `toolchain: wabt`, "toolchain"},
		{"level", `optimize: { level: 9 }`, "optimize.level"},
		{"shrink", `optimize: { shrink: -1 }`, "optimize.shrink"},
		{"range", `generator: { min: 0.2.40, max: 0.2.25 }`, "generator"},
		{"lanes", "offsets:\n  Matrix4: 0", "offsets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), filepath.Join(t.TempDir(), FileName))
			if !errors.IsKind(err, errors.KindInvalidInput) {
				t.Fatalf("err = %v, want invalid_input", err)
			}
			if !strings.Contains(err.Error(), " at "+tt.field) {
				t.Errorf("error does not name %s: %v", tt.field, err)
			}
		})
	}

	if _, err := Parse([]byte("dir: [unclosed"), "x.yaml"); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("malformed yaml: %v", err)
	}
}

func TestFindAndDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != "" || cfg.Root != nested {
		t.Errorf("defaults not rooted at start dir: %+v", cfg)
	}

	writeFile(t, filepath.Join(root, FileName), "name: found\n")
	path, err := Find(nested)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(root, FileName) {
		t.Errorf("Find = %q", path)
	}
	cfg, err = Discover(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "found" || cfg.Root != root {
		t.Errorf("discovered = %+v", cfg)
	}

	if _, err := Load(filepath.Join(root, "missing.yaml")); !errors.IsKind(err, errors.KindIOFailure) {
		t.Errorf("Load(missing) = %v", err)
	}
}

func TestBanner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{
  "name": "gl-matrix-wasm",
  "version": "0.3.0",
  "license": "MIT",
  "author": "Tianyu Dai <dtysky@outlook.com> (http://dtysky.moe)"
}`)
	cfg, err := Parse([]byte(`header: { copyright: "Copyright (c) 2018-present Tianyu Dai." }`), filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	got, err := cfg.Banner()
	if err != nil {
		t.Fatalf("Banner: %v", err)
	}
	want := `/**
 * @license gl-matrix-wasm v0.3.0
 * Copyright (c) 2018-present Tianyu Dai.
 *
 * This source code is licensed under the MIT license found in the
 * LICENSE file in the root directory of this source tree.
 */
`
	if got != want {
		t.Errorf("banner:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderBanner(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		meta Metadata
		want string
	}{
		{
			name: "no_license",
			meta: Metadata{Name: "pkg", Version: "1.0.0"},
			want: "/**\n * @license pkg v1.0.0\n */\n",
		},
		{
			name: "custom",
			h:    Header{Template: "// {{.Name}} by {{.Author}}"},
			meta: Metadata{Name: "pkg", Author: Person{Name: "A", Email: "a@b"}},
			want: "// pkg by A <a@b>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderBanner(tt.h, tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := RenderBanner(Header{Template: "{{.Nope}}"}, Metadata{}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("unknown field: %v", err)
	}
	if _, err := RenderBanner(Header{Template: "{{"}, Metadata{}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("bad template: %v", err)
	}
}

func TestBannerDisabled(t *testing.T) {
	cfg := Default()
	cfg.Package = ""
	got, err := cfg.Banner()
	if err != nil || got != "" {
		t.Errorf("Banner() = %q, %v", got, err)
	}

	cfg.Package = filepath.Join(t.TempDir(), "package.json")
	if _, err := cfg.Banner(); !errors.IsKind(err, errors.KindIOFailure) {
		t.Errorf("missing package.json: %v", err)
	}
}

func TestPerson(t *testing.T) {
	m, err := LoadMetadata(func() string {
		p := filepath.Join(t.TempDir(), "package.json")
		writeFile(t, p, `{"name":"x","author":{"name":"B","email":"b@c"}}`)
		return p
	}())
	if err != nil {
		t.Fatal(err)
	}
	if m.Author.String() != "B <b@c>" {
		t.Errorf("author = %q", m.Author)
	}
	if p := parsePerson("Just Name"); p.Name != "Just Name" || p.Email != "" {
		t.Errorf("parsePerson = %+v", p)
	}
}
