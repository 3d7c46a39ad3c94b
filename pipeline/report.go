package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/bindpost/modpass"
)

// Report describes one completed run.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Started   time.Time     `yaml:"started"`
	Duration  time.Duration `yaml:"-"`
	Toolchain string        `yaml:"toolchain"`
	Generator Generator     `yaml:"generator"`
	Module    ModuleStats   `yaml:"module"`

	Accessors  []string `yaml:"accessors"`
	Skipped    []string `yaml:"skipped,omitempty"`
	OutMethods []string `yaml:"out_methods"`

	Artifacts []Artifact `yaml:"artifacts"`
}

// Generator records the generator version the run was checked against.
type Generator struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Source  string `yaml:"source"`
}

// ModuleStats mirrors modpass.Stats for the manifest.
type ModuleStats struct {
	DeadBranches   int `yaml:"dead_branches"`
	StubsRemoved   int `yaml:"stubs_removed"`
	StubsKept      int `yaml:"stubs_kept,omitempty"`
	ExportsRemoved int `yaml:"exports_removed"`
	InputSize      int `yaml:"input_size"`
	OutputSize     int `yaml:"output_size"`
}

func moduleStats(s modpass.Stats) ModuleStats {
	return ModuleStats{
		DeadBranches:   s.DeadBranches,
		StubsRemoved:   s.StubsRemoved,
		StubsKept:      s.StubsKept,
		ExportsRemoved: s.ExportsRemoved,
		InputSize:      s.InputSize,
		OutputSize:     s.OutputSize,
	}
}

// Artifact is one file written by the run. Before is the size of the file
// it replaced, zero when it is new.
type Artifact struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"-"`
	Before int64  `yaml:"before"`
	After  int64  `yaml:"after"`
	SHA256 string `yaml:"sha256"`
}

func newArtifact(path string, before int64, data []byte) Artifact {
	sum := sha256.Sum256(data)
	return Artifact{
		Name:   filepath.Base(path),
		Path:   path,
		Before: before,
		After:  int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}
}

// Artifact returns the entry for the named file.
func (r *Report) Artifact(name string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Manifest serializes the report as YAML. The manifest does not list
// itself.
func (r *Report) Manifest() ([]byte, error) {
	return yaml.Marshal(r)
}
