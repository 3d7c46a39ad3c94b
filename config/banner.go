package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"text/template"

	"github.com/wippyai/bindpost/errors"
)

// Metadata is the subset of package.json the banner uses.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	License string `json:"license"`
	Author  Person `json:"author"`
}

// Person is a package.json person field, written either as
// "Name <email> (url)" or as an object.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (p *Person) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = parsePerson(s)
		return nil
	}
	type plain Person
	return json.Unmarshal(data, (*plain)(p))
}

func parsePerson(s string) Person {
	var p Person
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j > 0 {
			p.Email = s[i+1 : i+j]
		}
		s = s[:i]
	}
	p.Name = strings.TrimSpace(s)
	return p
}

func (p Person) String() string {
	if p.Email == "" {
		return p.Name
	}
	return p.Name + " <" + p.Email + ">"
}

// LoadMetadata reads package.json.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, path, err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Artifact(path).
			Cause(err).
			Detail("parse package metadata").
			Build()
	}
	return &m, nil
}

// DefaultBanner is the header template. Fields: Name, Version, License,
// Author, Copyright.
const DefaultBanner = `/**
 * @license {{.Name}}{{with .Version}} v{{.}}{{end}}
{{- with .Copyright}}
 * {{.}}
{{- end}}
{{- with .License}}
 *
 * This source code is licensed under the {{.}} license found in the
 * LICENSE file in the root directory of this source tree.
{{- end}}
 */
`

// BannerData is the value the header template is executed with.
type BannerData struct {
	Name      string
	Version   string
	License   string
	Author    string
	Copyright string
}

// Banner renders the header prepended to every text artifact. It returns
// "" when neither package metadata nor a custom template is configured.
func (c *Config) Banner() (string, error) {
	var meta Metadata
	if path := c.PackagePath(); path != "" {
		m, err := LoadMetadata(path)
		if err != nil {
			return "", err
		}
		meta = *m
	} else if c.Header.Template == "" {
		return "", nil
	}
	return RenderBanner(c.Header, meta)
}

// RenderBanner executes the header template over meta.
func RenderBanner(h Header, meta Metadata) (string, error) {
	text := h.Template
	if text == "" {
		text = DefaultBanner
	}
	tmpl, err := template.New("header").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("header", "template").
			Cause(err).
			Build()
	}

	data := BannerData{
		Name:      meta.Name,
		Version:   meta.Version,
		License:   meta.License,
		Author:    meta.Author.String(),
		Copyright: h.Copyright,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("header", "template").
			Cause(err).
			Build()
	}
	out := buf.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}
