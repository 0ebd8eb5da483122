// Package lang maps file names to language identifiers and holds the
// tree-sitter grammars used by grammar-backed scanners.
package lang

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language identifiers reported by SourceUnits and scanners.
const (
	Java       = "java"
	Python     = "python"
	XML        = "xml"
	HTML       = "html"
	CSS        = "css"
	JavaScript = "javascript"
	TypeScript = "typescript"
	Cpp        = "cpp"
	CSharp     = "csharp"
	Unknown    = "unknown"
)

var extensions = map[string]string{
	"java": Java,
	"py":   Python,
	"xml":  XML,
	"html": HTML,
	"css":  CSS,
	"js":   JavaScript,
	"ts":   TypeScript,
	"c":    Cpp,
	"cpp":  Cpp,
	"h":    Cpp,
	"hpp":  Cpp,
	"cs":   CSharp,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ForExtension returns the language for a file extension, with or without
// the leading dot. Matching is case-insensitive; unsupported extensions
// return Unknown.
func ForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if l, ok := extensions[ext]; ok {
		return l
	}
	return Unknown
}

// ForFileName returns the language for a file name. Names without an
// extension, names whose only dot is the first character (".java") and
// names ending in a dot are Unknown.
func ForFileName(name string) string {
	base := filepath.Base(name)
	if name == "" || base == "." {
		return Unknown
	}
	dot := strings.LastIndex(base, ".")
	if dot <= 0 || dot == len(base)-1 {
		return Unknown
	}
	return ForExtension(base[dot+1:])
}

// Known reports whether the extension maps to a language other than Unknown.
func Known(ext string) bool {
	return ForExtension(ext) != Unknown
}

// Grammar holds a tree-sitter language used by a grammar-backed scanner.
type Grammar struct {
	Name string
	lang *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer.
func (g *Grammar) GetLanguage() *sitter.Language {
	return g.lang
}

// NewParser creates a fresh tree-sitter parser for this grammar.
// Each goroutine must use its own parser (not thread-safe).
func (g *Grammar) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(g.lang)
	return p
}

var (
	grammarsMu sync.RWMutex
	grammars   = map[string]*Grammar{}
)

func registerGrammar(g *Grammar) {
	grammarsMu.Lock()
	defer grammarsMu.Unlock()
	grammars[g.Name] = g
}

// GrammarFor returns the tree-sitter grammar registered for a language, or nil.
func GrammarFor(name string) *Grammar {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	return grammars[name]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
