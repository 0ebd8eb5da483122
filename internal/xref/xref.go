// Package xref links classes across files and ranks files by how often
// their classes are used elsewhere.
package xref

import (
	"math"
	"regexp"
	"sort"

	"github.com/phobologic/docgen/internal/model"
)

// Reference records that members declared in Source name classes declared
// in Target.
type Reference struct {
	Source string
	Target string
	Types  []string
}

// Index holds the cross-file references of a project and the PageRank of
// each file over them.
type Index struct {
	refs    []Reference
	ranks   map[string]float64
	defines map[string][]string // class name → sorted keys of declaring files
}

var identRe = regexp.MustCompile(`[A-Za-z_$][\w$]*`)

// Key identifies a file model within the index: its path, or its name when
// the path is empty.
func Key(f *model.File) string {
	if f.FilePath != "" {
		return f.FilePath
	}
	return f.FileName
}

// Build indexes p. A nil project yields an empty index.
func Build(p *model.Project) *Index {
	ix := &Index{ranks: map[string]float64{}, defines: map[string][]string{}}
	if p == nil {
		return ix
	}

	// Definition index: class name → set of files that declare it
	defines := make(map[string]map[string]struct{})
	for _, f := range p.Files {
		for _, c := range f.Classes {
			if defines[c.Name] == nil {
				defines[c.Name] = make(map[string]struct{})
			}
			defines[c.Name][Key(f)] = struct{}{}
		}
	}
	for name, files := range defines {
		ix.defines[name] = sortedKeys(files)
	}

	type edgeKey struct{ src, tgt string }
	edgeTypes := make(map[edgeKey][]string)

	for _, f := range p.Files {
		src := Key(f)
		for _, name := range memberTypeNames(f) {
			for _, tgt := range ix.defines[name] {
				if tgt == src {
					continue
				}
				key := edgeKey{src, tgt}
				if !contains(edgeTypes[key], name) {
					edgeTypes[key] = append(edgeTypes[key], name)
				}
			}
		}
	}

	for key, types := range edgeTypes {
		ix.refs = append(ix.refs, Reference{Source: key.src, Target: key.tgt, Types: types})
	}
	sort.Slice(ix.refs, func(i, j int) bool {
		if ix.refs[i].Source != ix.refs[j].Source {
			return ix.refs[i].Source < ix.refs[j].Source
		}
		return ix.refs[i].Target < ix.refs[j].Target
	})

	ix.rank(p)
	return ix
}

// References returns the cross-file references sorted by source then target.
func (ix *Index) References() []Reference {
	return append([]Reference(nil), ix.refs...)
}

// Rank returns the PageRank of the file with the given key, or 0.
func (ix *Index) Rank(key string) float64 {
	return ix.ranks[key]
}

// Resolve returns the key of a file other than from that declares a class
// named in typ. Generic arguments and array brackets are looked through, so
// "List<Account>" resolves to the file declaring Account.
func (ix *Index) Resolve(from, typ string) (string, bool) {
	for _, name := range identRe.FindAllString(typ, -1) {
		for _, key := range ix.defines[name] {
			if key != from {
				return key, true
			}
		}
	}
	return "", false
}

// Ordered returns p's files sorted by rank, highest first. Ties keep the
// project order.
func (ix *Index) Ordered(p *model.Project) []*model.File {
	files := append([]*model.File(nil), p.Files...)
	sort.SliceStable(files, func(i, j int) bool {
		return ix.ranks[Key(files[i])] > ix.ranks[Key(files[j])]
	})
	return files
}

func (ix *Index) rank(p *model.Project) {
	if len(p.Files) == 0 {
		return
	}

	nodes := make(map[string]struct{})
	for _, f := range p.Files {
		nodes[Key(f)] = struct{}{}
	}

	if len(ix.refs) == 0 {
		uniform := 1.0 / float64(len(nodes))
		for node := range nodes {
			ix.ranks[node] = uniform
		}
		return
	}

	// Each referenced type is one edge from source to target.
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, r := range ix.refs {
		for range r.Types {
			outEdges[r.Source] = append(outEdges[r.Source], r.Target)
			outDegree[r.Source]++
		}
	}

	ix.ranks = pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

// memberTypeNames returns every identifier appearing in the member types
// of f's classes.
func memberTypeNames(f *model.File) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, c := range f.Classes {
		for _, name := range TypeNames(c) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// TypeNames returns the distinct identifiers in c's field types and method
// return types, in declaration order.
func TypeNames(c *model.Class) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(typ string) {
		for _, name := range identRe.FindAllString(typ, -1) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, fld := range c.Fields {
		add(fld.Type)
	}
	for _, m := range c.Methods {
		add(m.ReturnType)
	}
	return names
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling nodes spread their rank evenly.
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
