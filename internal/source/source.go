// Package source defines the SourceUnit: one named piece of source text
// together with the language inferred from its name.
package source

import (
	"fmt"

	"github.com/phobologic/docgen/internal/lang"
)

// Unit is an immutable (name, path, content, language) record. The zero
// value has language "" and is never produced by the constructors.
type Unit struct {
	name     string
	path     string
	content  string
	language string
}

// New creates a Unit whose language is derived from name's extension.
func New(name, path, content string) Unit {
	return Unit{
		name:     name,
		path:     path,
		content:  content,
		language: lang.ForFileName(name),
	}
}

// NewWithLanguage creates a Unit with a caller-declared language. An empty
// language falls back to the extension table.
func NewWithLanguage(name, path, content, language string) Unit {
	if language == "" {
		return New(name, path, content)
	}
	return Unit{name: name, path: path, content: content, language: language}
}

// Renamed returns a copy of u with a new name and a recomputed language.
func (u Unit) Renamed(name string) Unit {
	return New(name, u.path, u.content)
}

func (u Unit) Name() string     { return u.name }
func (u Unit) Path() string     { return u.path }
func (u Unit) Content() string  { return u.content }
func (u Unit) Language() string { return u.language }

func (u Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.path, u.language)
}
