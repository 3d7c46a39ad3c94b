package compat

import (
	"testing"

	"github.com/coreos/go-semver/semver"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/wasm"
)

func module(t *testing.T, producers wasm.Producers) []byte {
	t.Helper()
	m := &wasm.Module{}
	if producers != nil {
		m.CustomSections = append(m.CustomSections, wasm.CustomSection{
			Name: wasm.CustomSectionProducers,
			Data: wasm.EncodeProducers([]string{"language", ProducersField}, producers),
		})
	}
	return m.Encode()
}

func TestCheck(t *testing.T) {
	c := Default()
	tests := []struct {
		version string
		ok      bool
	}{
		{"0.2.25", true},
		{"0.2.29", true},
		{"v0.2.39", true},
		{"0.2.29 (a1b2c3d4e 2018-12-04)", true},
		{"0.2.24", false},
		{"0.2.40", false},
		{"0.3.0", false},
		{"0.2.40-alpha", true},
		{"banana", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := c.Check(tt.version)
		if tt.ok && err != nil {
			t.Errorf("Check(%q): %v", tt.version, err)
		}
		if !tt.ok && !errors.IsKind(err, errors.KindIncompatibleGenerator) {
			t.Errorf("Check(%q) = %v, want incompatible_generator", tt.version, err)
		}
	}
}

func TestNewContract(t *testing.T) {
	c, err := NewContract("", "", "0.2.50")
	if err != nil {
		t.Fatal(err)
	}
	if c.Generator != DefaultGenerator || !c.Min.Equal(*semver.New("0.2.25")) || !c.Max.Equal(*semver.New("0.2.50")) {
		t.Errorf("contract = %s", c)
	}
	if c.String() != "wasm-bindgen [0.2.25, 0.2.50)" {
		t.Errorf("String = %q", c.String())
	}

	for _, bad := range [][3]string{
		{"", "0.2.40", "0.2.40"},
		{"", "0.3.0", "0.2.0"},
		{"", "x", ""},
		{"", "", "1.2"},
	} {
		if _, err := NewContract(bad[0], bad[1], bad[2]); err == nil {
			t.Errorf("NewContract(%q, %q, %q): expected error", bad[0], bad[1], bad[2])
		}
	}
}

func TestResolve(t *testing.T) {
	c := Default()
	recorded := wasm.Producers{
		"language":     {{Name: "Rust", Version: ""}},
		ProducersField: {{Name: "rustc", Version: "1.31.0"}, {Name: "wasm-bindgen", Version: "0.2.29 (abc)"}},
	}
	tooNew := wasm.Producers{ProducersField: {{Name: "wasm-bindgen", Version: "0.2.80"}}}
	otherTool := wasm.Producers{ProducersField: {{Name: "walrus", Version: "0.1.0"}}}

	tests := []struct {
		name     string
		bin      []byte
		declared string
		source   string
		version  string
		wantErr  bool
	}{
		{"producers", module(t, recorded), "", SourceProducers, "0.2.29", false},
		{"producers_win_over_declared", module(t, recorded), "0.2.30", SourceProducers, "0.2.29", false},
		{"producers_out_of_range", module(t, tooNew), "0.2.30", "", "", true},
		{"declared_fallback", module(t, nil), "0.2.30", SourceDeclared, "0.2.30", false},
		{"generator_not_recorded", module(t, otherTool), "0.2.26", SourceDeclared, "0.2.26", false},
		{"nothing_known", module(t, nil), "", "", "", true},
		{"unreadable_binary", []byte("nope"), "0.2.30", SourceDeclared, "0.2.30", false},
		{"declared_out_of_range", module(t, nil), "0.1.0", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := c.Resolve(tt.bin, tt.declared)
			if tt.wantErr {
				if !errors.IsKind(err, errors.KindIncompatibleGenerator) {
					t.Fatalf("err = %v, want incompatible_generator", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if m.Source != tt.source || m.Version.String() != tt.version {
				t.Errorf("match = %s from %s, want %s from %s", m.Version, m.Source, tt.version, tt.source)
			}
		})
	}
}
