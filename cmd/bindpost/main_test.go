package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/pipeline"
)

func TestLoadConfigOverrides(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bindpost.yaml"), []byte("dir: out\nname: lib\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("", root, overrides{name: "math", generatorVersion: "0.2.30"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != "out" || cfg.Name != "math" || cfg.Generator.Version != "0.2.30" {
		t.Errorf("config = %+v", cfg)
	}

	_, err = loadConfig(filepath.Join(root, "bindpost.yaml"), "", overrides{toolchain: "wabt"})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("unknown toolchain: %v", err)
	}
}

func TestRunExitCodes(t *testing.T) {
	badConfig := t.TempDir()
	if err := os.WriteFile(filepath.Join(badConfig, "bindpost.yaml"), []byte("toolchain: wabt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"-version"}, 0},
		{"help", []string{"-h"}, 0},
		{"unknown_flag", []string{"-frobnicate"}, 2},
		{"bad_log_level", []string{"-log-level", "loud"}, 2},
		{"invalid_config", []string{"-C", badConfig}, 2},
		{"missing_artifacts", []string{"-C", t.TempDir(), "-json", "-log-level", "error"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	if _, err := newLogger("loud", false, false); err == nil {
		t.Error("invalid level accepted")
	}
	log, err := newLogger("debug", true, true)
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(-1) {
		t.Error("interactive mode should log errors only")
	}
}

func TestRenderSummary(t *testing.T) {
	r := &pipeline.Report{
		Duration:   1500 * time.Millisecond,
		Generator:  pipeline.Generator{Name: "wasm-bindgen", Version: "0.2.29", Source: "producers"},
		Module:     pipeline.ModuleStats{DeadBranches: 3, StubsRemoved: 2, ExportsRemoved: 2},
		Accessors:  []string{"Matrix4", "Vector3"},
		Skipped:    []string{"Color"},
		OutMethods: []string{"Matrix4.copy: Matrix4"},
		Artifacts: []pipeline.Artifact{
			{Name: "gl_matrix_wasm_bg.wasm", Before: 2048, After: 1024},
			{Name: "gl_matrix_wasm.split.js", After: 512},
		},
	}
	out := renderSummary(r, true, 80)
	for _, want := range []string{
		"dry run",
		"wasm-bindgen 0.2.29 from producers",
		"3 dead branches folded",
		"Matrix4, Vector3",
		"Skipped: Color",
		"Out-methods: 1",
		"gl_matrix_wasm_bg.wasm",
		"2.0 kB",
		"new",
		"done in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
