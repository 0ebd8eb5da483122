// Package discover finds documentable source files in a directory tree.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to the walk root
	Language string
	Size     int64
}

// Options narrows discovery.
type Options struct {
	// Languages keeps only files of the listed languages; empty keeps every
	// language the extension table knows.
	Languages []string
	// MaxFileSize moves larger files to the oversized list; zero disables
	// the limit.
	MaxFileSize int64
	// IncludeTests keeps files that IsTestFile reports as tests.
	IncludeTests bool
	// Exclude drops files whose slash-separated relative path matches any
	// of these glob patterns ("**" crosses directories).
	Exclude []string
}

// Result lists the discovered files sorted by path.
type Result struct {
	Files     []FileEntry
	Oversized []FileEntry
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	"target":        {},
	"out":           {},
	".gradle":       {},
	".idea":         {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Files discovers source files under root. Inside a git work tree only
// files git knows about (tracked or untracked but not ignored) are
// considered; otherwise a top-level .gitignore is honored.
func Files(root string, opts Options) (*Result, error) {
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[strings.ToLower(l)] = struct{}{}
	}
	exclude, err := CompilePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	res := &Result{}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if exclude.Match(filepath.ToSlash(rel)) {
			return nil
		}

		langName := lang.ForFileName(name)
		if langName == lang.Unknown {
			return nil
		}
		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}
		if !opts.IncludeTests && IsTestFile(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		entry := FileEntry{Path: rel, Language: langName, Size: info.Size()}
		if opts.MaxFileSize > 0 && entry.Size > opts.MaxFileSize {
			res.Oversized = append(res.Oversized, entry)
			return nil
		}
		res.Files = append(res.Files, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(res.Files)
	sortEntries(res.Oversized)
	return res, nil
}

// SkipDir reports whether a directory with this name is never searched:
// hidden directories, VCS metadata, virtualenvs and build output.
func SkipDir(name string) bool {
	if _, skip := skipDirs[name]; skip {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Patterns is a compiled set of exclude globs.
type Patterns []patternGlob

type patternGlob struct {
	pattern string
	glob    glob.Glob
}

// CompilePatterns compiles glob patterns with '/' as the separator. A
// pattern that does not compile is a KindValidation error.
func CompilePatterns(patterns []string) (Patterns, error) {
	var out Patterns
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Attr(errors.Wrapf(err, errors.KindValidation, "invalid exclude pattern %q", pattern), "pattern", pattern)
		}
		out = append(out, patternGlob{pattern: pattern, glob: g})
	}
	return out, nil
}

// Match reports whether path matches any pattern. Files at the top level
// also match patterns written with a leading "**/".
func (ps Patterns) Match(path string) bool {
	for _, p := range ps {
		if p.glob.Match(path) {
			return true
		}
		if !strings.Contains(path, "/") && strings.HasPrefix(p.pattern, "**/") {
			if g, err := glob.Compile(strings.TrimPrefix(p.pattern, "**/"), '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}

func sortEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

var testDirs = map[string]struct{}{
	"test":      {},
	"tests":     {},
	"spec":      {},
	"__tests__": {},
}

// IsTestFile reports whether path looks like a test source: it sits under a
// test directory, or its name follows a common test naming pattern.
func IsTestFile(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, dir := range parts[:len(parts)-1] {
		if _, ok := testDirs[dir]; ok {
			return true
		}
	}

	base := parts[len(parts)-1]
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	switch {
	case strings.HasPrefix(base, "test_"):
		return true
	case strings.HasSuffix(stem, "_test"), strings.HasSuffix(stem, "_spec"),
		strings.HasSuffix(stem, ".test"), strings.HasSuffix(stem, ".spec"):
		return true
	case filepath.Ext(base) == ".java" && len(stem) > len("Test") &&
		(strings.HasSuffix(stem, "Test") || strings.HasSuffix(stem, "Tests")):
		return true
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
