// Package doc parses documentation comments into a free-text description and
// an ordered multimap of named tags.
package doc

import (
	"regexp"
	"strings"
	"unicode"
)

// Well-known tag names.
const (
	TagParam  = "param"
	TagReturn = "return"
)

var (
	markerRe     = regexp.MustCompile(`@[A-Za-z0-9_]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Param is one parameter tag split into a name and a description.
type Param struct {
	Name        string
	Description string
}

// Tag is a single tag occurrence.
type Tag struct {
	Name  string
	Value string
}

// Tags maps tag names to their values. Names keep the order of their first
// appearance and values keep source order; repeated tags accumulate.
type Tags struct {
	order  []string
	values map[string][]string
}

func (t *Tags) add(name, value string) {
	if t.values == nil {
		t.values = make(map[string][]string)
	}
	if _, ok := t.values[name]; !ok {
		t.order = append(t.order, name)
	}
	t.values[name] = append(t.values[name], value)
}

// Names returns tag names in order of first appearance.
func (t Tags) Names() []string {
	return append([]string(nil), t.order...)
}

// Values returns the values recorded for name, or nil.
func (t Tags) Values(name string) []string {
	vs, ok := t.values[name]
	if !ok {
		return nil
	}
	return append([]string(nil), vs...)
}

// First returns the first value recorded for name.
func (t Tags) First(name string) (string, bool) {
	vs := t.values[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Len returns the number of tag occurrences.
func (t Tags) Len() int {
	n := 0
	for _, vs := range t.values {
		n += len(vs)
	}
	return n
}

// All flattens the multimap, grouped by name in order of first appearance.
func (t Tags) All() []Tag {
	all := make([]Tag, 0, t.Len())
	for _, name := range t.order {
		for _, v := range t.values[name] {
			all = append(all, Tag{Name: name, Value: v})
		}
	}
	return all
}

// Block is a parsed documentation comment. The description and tags are
// computed once, when the block is created, and always match Raw.
type Block struct {
	raw         string
	description string
	tags        Tags
}

// New parses raw comment text into a Block.
func New(raw string) *Block {
	desc, tags := Parse(raw)
	return &Block{raw: raw, description: desc, tags: tags}
}

// Raw returns the comment text the block was built from.
func (b *Block) Raw() string { return b.raw }

// Description returns the text before the first tag, trimmed.
func (b *Block) Description() string { return b.description }

// Tags returns the parsed tags.
func (b *Block) Tags() Tags { return b.tags }

// Params splits every "param" tag value at its first whitespace run.
func (b *Block) Params() []Param {
	return SplitParams(b.tags.Values(TagParam))
}

// Return returns the first "return" tag value, if any.
func (b *Block) Return() (string, bool) {
	return b.tags.First(TagReturn)
}

// Parse splits comment text into a description and tags. It is pure:
// parsing the same text twice yields identical results.
func Parse(raw string) (string, Tags) {
	var tags Tags
	text := Normalize(raw)
	if text == "" {
		return "", tags
	}

	markers := findMarkers(text)
	if len(markers) == 0 {
		return text, tags
	}

	description := strings.TrimSpace(text[:markers[0][0]])
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		name := text[m[0]+1 : m[1]]
		tags.add(name, strings.TrimSpace(text[m[1]:end]))
	}
	return description, tags
}

// Normalize strips a leading "/**" and trailing "*/", trims the first line
// and removes one leading '*' plus surrounding whitespace from every other
// line.
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if i > 0 {
			line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		}
		lines[i] = line
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitParams converts raw "param" tag values into Params.
func SplitParams(values []string) []Param {
	params := make([]Param, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		loc := whitespaceRe.FindStringIndex(v)
		if loc == nil {
			params = append(params, Param{Name: v})
			continue
		}
		params = append(params, Param{
			Name:        v[:loc[0]],
			Description: strings.TrimSpace(v[loc[1]:]),
		})
	}
	return params
}

// findMarkers returns [start, end) offsets of every "@identifier" token that
// begins the text or follows whitespace, and is followed by whitespace or
// the end of the text.
func findMarkers(text string) [][]int {
	var markers [][]int
	for _, m := range markerRe.FindAllStringIndex(text, -1) {
		if m[0] > 0 && !isSpaceByte(text[m[0]-1]) {
			continue
		}
		if m[1] < len(text) && !isSpaceByte(text[m[1]]) {
			continue
		}
		markers = append(markers, m)
	}
	return markers
}

func isSpaceByte(b byte) bool {
	return b < 0x80 && unicode.IsSpace(rune(b))
}
