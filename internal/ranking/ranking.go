// Package ranking narrows a project to its most relevant files and classes
// before rendering.
package ranking

import (
	"strings"

	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/xref"
)

// SelectFiles returns a new Project with only the maxFiles highest-ranked
// files, kept in project order. If maxFiles is <= 0 or >= len(files), p is
// returned unchanged.
func SelectFiles(p *model.Project, maxFiles int) *model.Project {
	if p == nil || maxFiles <= 0 || maxFiles >= len(p.Files) {
		return p
	}

	selected := make(map[*model.File]struct{}, maxFiles)
	for _, f := range xref.Build(p).Ordered(p)[:maxFiles] {
		selected[f] = struct{}{}
	}

	out := model.NewProject(p.Name)
	for _, f := range p.Files {
		if _, ok := selected[f]; ok {
			out.AddFile(f)
		}
	}
	return out
}

// FilterByClass returns a new Project containing only classes whose name
// contains substr (case-insensitive), the classes their members name, and
// the classes whose members name them. Files left without classes are
// dropped. An empty substr returns p unchanged.
func FilterByClass(p *model.Project, substr string) *model.Project {
	if p == nil || substr == "" {
		return p
	}
	lower := strings.ToLower(substr)

	declared := make(map[string]struct{})
	matched := make(map[string]struct{})
	for _, f := range p.Files {
		for _, c := range f.Classes {
			declared[c.Name] = struct{}{}
			if strings.Contains(strings.ToLower(c.Name), lower) {
				matched[c.Name] = struct{}{}
			}
		}
	}

	// Expand one hop in both directions along member types.
	keep := make(map[string]struct{}, len(matched))
	for name := range matched {
		keep[name] = struct{}{}
	}
	for _, f := range p.Files {
		for _, c := range f.Classes {
			_, isMatched := matched[c.Name]
			for _, name := range xref.TypeNames(c) {
				if _, ok := declared[name]; !ok {
					continue
				}
				if isMatched {
					keep[name] = struct{}{}
				}
				if _, ok := matched[name]; ok {
					keep[c.Name] = struct{}{}
				}
			}
		}
	}

	out := model.NewProject(p.Name)
	for _, f := range p.Files {
		var classes []*model.Class
		for _, c := range f.Classes {
			if _, ok := keep[c.Name]; ok {
				classes = append(classes, c)
			}
		}
		if len(classes) == 0 {
			continue
		}
		nf := model.NewFile(f.FileName, f.FilePath, f.Language)
		nf.Classes = classes
		out.AddFile(nf)
	}
	return out
}
