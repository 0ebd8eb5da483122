// Package scan turns source units into file models. Each Scanner handles one
// language; a Registry resolves scanners by language identifier.
package scan

import (
	"sort"
	"strings"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/source"
)

// Scanner builds a FileModel from one source unit.
//
// Scan returns (nil, nil) when it produces no model: empty or
// whitespace-only content, or a unit whose language is not the scanner's.
type Scanner interface {
	Language() string
	Scan(unit source.Unit) (*model.File, error)
}

// Registry maps language identifiers to scanners. It is read-only once
// built and safe for concurrent use.
type Registry struct {
	byLanguage map[string]Scanner
}

// NewRegistry builds a registry keyed by each scanner's Language. Two
// scanners reporting the same language is a configuration error.
func NewRegistry(scanners ...Scanner) (*Registry, error) {
	r := &Registry{byLanguage: make(map[string]Scanner, len(scanners))}
	for _, s := range scanners {
		key := strings.ToLower(s.Language())
		if key == "" {
			return nil, errors.New(errors.KindConfiguration, "scanner reports an empty language")
		}
		if _, dup := r.byLanguage[key]; dup {
			return nil, errors.Errorf(errors.KindConfiguration, "duplicate scanner for language %q", key)
		}
		r.byLanguage[key] = s
	}
	return r, nil
}

// Default returns a registry with every built-in scanner.
func Default() *Registry {
	r, err := NewRegistry(NewJavaScanner(), NewPythonScanner())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the scanner for language, if any.
func (r *Registry) Lookup(language string) (Scanner, bool) {
	s, ok := r.byLanguage[strings.ToLower(language)]
	return s, ok
}

// Languages returns the registered language identifiers, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.byLanguage))
	for k := range r.byLanguage {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
