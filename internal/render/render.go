// Package render turns a project model into an output artifact. Each
// Generator handles one format; a Registry resolves generators by format
// name, case-insensitively.
package render

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
)

// Format names of the built-in generators.
const (
	FormatXML      = "xml"
	FormatYAML     = "yaml"
	FormatTOON     = "toon"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

// Artifact is the output of a Generator: one of *Text, *DocumentSet or
// *Binary.
type Artifact interface {
	artifact()
}

// Text is a single structured-text payload.
type Text struct {
	Format    string
	MediaType string
	Extension string
	Body      string
}

// DocumentSet is a directory of linked documents. Every path in Files is
// relative to Root and exists on disk; Entry is one of them.
type DocumentSet struct {
	Root  string
	Entry string
	Files []string
}

// Binary is a single binary document.
type Binary struct {
	MediaType string
	Extension string
	Data      []byte
}

func (*Text) artifact()        {}
func (*DocumentSet) artifact() {}
func (*Binary) artifact()      {}

// Generator renders a project into an artifact. A nil project renders as
// an empty one.
type Generator interface {
	Format() string
	Generate(p *model.Project) (Artifact, error)
}

// Registry maps format names to generators. It is read-only once built.
type Registry struct {
	byFormat map[string]Generator
}

// NewRegistry builds a registry keyed by each generator's Format. Two
// generators reporting the same format is a configuration error.
func NewRegistry(generators ...Generator) (*Registry, error) {
	r := &Registry{byFormat: make(map[string]Generator, len(generators))}
	for _, g := range generators {
		key := strings.ToLower(g.Format())
		if key == "" {
			return nil, errors.New(errors.KindConfiguration, "generator reports an empty format")
		}
		if _, dup := r.byFormat[key]; dup {
			return nil, errors.Errorf(errors.KindConfiguration, "duplicate generator for format %q", key)
		}
		r.byFormat[key] = g
	}
	return r, nil
}

// Options configures the built-in generators.
type Options struct {
	// OutputDir is the base directory for html document sets. Each set is
	// written to a fresh <OutputDir>/<uuid> directory.
	OutputDir string
	// PageSize is the pdf page size, "A4" or "Letter".
	PageSize string
	// FontSize is the pdf body font size in points.
	FontSize float64
	// FontFile is an optional UTF-8 TrueType font for the pdf. Without it
	// the built-in fonts are used, which only cover cp1252.
	FontFile string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{OutputDir: "generated-docs-html", PageSize: "A4", FontSize: 11}
}

// Default returns a registry with every built-in generator.
func Default(opts Options) *Registry {
	r, err := NewRegistry(
		NewXMLGenerator(),
		NewYAMLGenerator(),
		NewTOONGenerator(),
		NewMarkdownGenerator(),
		NewHTMLGenerator(opts.OutputDir, uuid.NewString),
		NewPDFGenerator(opts.PageSize, opts.FontSize).WithFontFile(opts.FontFile),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the generator for format, if any.
func (r *Registry) Lookup(format string) (Generator, bool) {
	g, ok := r.byFormat[strings.ToLower(format)]
	return g, ok
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.byFormat))
	for k := range r.byFormat {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func orEmpty(p *model.Project) *model.Project {
	if p == nil {
		return model.NewProject("")
	}
	return p
}
