package jsscan

import "strings"

// Doc is a JSDoc block comment.
type Doc struct {
	Tags []Tag
	Span Span
}

// Tag is one @tag line of a JSDoc comment, e.g. "@param {Matrix4} out".
// TypeSpan locates the text between the braces in the source file.
type Tag struct {
	Name     string
	Type     string
	Param    string
	TypeSpan Span
}

// Tag returns the first tag with the given name, or nil.
func (d *Doc) Tag(name string) *Tag {
	if d == nil {
		return nil
	}
	for i := range d.Tags {
		if d.Tags[i].Name == name {
			return &d.Tags[i]
		}
	}
	return nil
}

// Param returns the @param tag documenting the named parameter, or nil.
func (d *Doc) Param(name string) *Tag {
	if d == nil {
		return nil
	}
	for i := range d.Tags {
		if d.Tags[i].Name == "param" && d.Tags[i].Param == name {
			return &d.Tags[i]
		}
	}
	return nil
}

// Returns returns the @returns (or @return) tag, or nil.
func (d *Doc) Returns() *Tag {
	if t := d.Tag("returns"); t != nil {
		return t
	}
	return d.Tag("return")
}

// docBefore returns the JSDoc comment that directly precedes pos,
// separated from it by whitespace only.
func (f *File) docBefore(pos int) *Doc {
	lo, hi := 0, len(f.Comments)
	for lo < hi {
		mid := (lo + hi) / 2
		if f.Comments[mid].End <= pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return nil
	}
	c := f.Comments[lo-1]
	if !strings.HasPrefix(c.Text, "/**") || strings.TrimSpace(f.Src[c.End:pos]) != "" {
		return nil
	}
	return ParseDoc(c.Text, c.Pos)
}

// ParseDoc parses the tags of a JSDoc comment located at offset base.
func ParseDoc(text string, base int) *Doc {
	d := &Doc{Span: Span{base, base + len(text)}}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	off := base + 3
	for _, line := range strings.SplitAfter(body, "\n") {
		lineOff := off
		off += len(line)

		i := 0
		for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '*') {
			i++
		}
		if i >= len(line) || line[i] != '@' {
			continue
		}
		if tag, ok := parseTag(line, i, lineOff); ok {
			d.Tags = append(d.Tags, tag)
		}
	}
	return d
}

func parseTag(line string, i, lineOff int) (Tag, bool) {
	i++
	start := i
	for i < len(line) && isIdentPart(line[i]) {
		i++
	}
	if i == start {
		return Tag{}, false
	}
	tag := Tag{Name: line[start:i]}
	i = skipBlank(line, i)

	if i < len(line) && line[i] == '{' {
		depth := 0
		for j := i; j < len(line); j++ {
			switch line[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				tag.Type = line[i+1 : j]
				tag.TypeSpan = Span{lineOff + i + 1, lineOff + j}
				i = skipBlank(line, j+1)
				break
			}
		}
	}

	start = i
	for i < len(line) && (isIdentPart(line[i]) || line[i] == '.' || line[i] == '[' || line[i] == ']') {
		i++
	}
	tag.Param = strings.Trim(line[start:i], "[]")
	return tag, true
}

func skipBlank(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}
