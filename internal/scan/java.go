package scan

import (
	"regexp"
	"strings"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/lang"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/source"
)

const (
	docOpen      = "/**"
	commentOpen  = "/*"
	commentClose = "*/"
	lineComment  = "//"
)

const (
	annotationsPat = `(?:@[\w$.]+(?:\([^)]*\))?\s+)*`
	modifiersPat   = `(?:(?:public|protected|private|static|final|abstract|synchronized|native|default|transient|volatile|strictfp)\s+)*`
	typePat        = `[\w$.]+(?:<[^=;(){}]*>)?(?:\[\])*`
)

var (
	classRe   = regexp.MustCompile(`(?:^|[^\w@$])(class|interface|enum|@interface)\s+([\w$]+)`)
	methodRe  = regexp.MustCompile(`^` + annotationsPat + modifiersPat + `(?:<[^>]*>\s+)?(` + typePat + `)\s+([\w$]+)\s*\([^)]*\)\s*(?:throws\s+[\w$.,\s]+?)?\s*[{;]`)
	fieldRe   = regexp.MustCompile(`^` + annotationsPat + modifiersPat + `(` + typePat + `)\s+([\w$]+)\s*(?:=[^;]*)?;`)
	newlineRe = regexp.MustCompile(`\r\n|\r|\n`)
)

// Words the method and field patterns would otherwise read as a type:
// statements ("return foo(x);", "throw err;") and modifiers, which is how a
// constructor ("public Calc() {") would match.
var notTypes = map[string]struct{}{
	"public":       {},
	"protected":    {},
	"private":      {},
	"static":       {},
	"final":        {},
	"abstract":     {},
	"synchronized": {},
	"native":       {},
	"default":      {},
	"transient":    {},
	"volatile":     {},
	"strictfp":     {},

	"return":  {},
	"new":     {},
	"throw":   {},
	"else":    {},
	"case":    {},
	"package": {},
	"import":  {},
	"yield":   {},
	"assert":  {},
}

type lineState int

const (
	stateNormal lineState = iota
	stateDocBlock
	statePlainComment
)

// JavaScanner is a single-pass, line-oriented scanner for Java sources. It
// matches declarations with regular expressions and never looks past the
// current line, so multi-line signatures and nested types are not modeled.
type JavaScanner struct{}

// NewJavaScanner returns the Java scanner.
func NewJavaScanner() *JavaScanner { return &JavaScanner{} }

func (*JavaScanner) Language() string { return lang.Java }

// Scan runs the line state machine over unit's content.
func (s *JavaScanner) Scan(unit source.Unit) (*model.File, error) {
	if isBlank(unit.Content()) || !strings.EqualFold(unit.Language(), lang.Java) {
		return nil, nil
	}

	m := &javaMachine{file: model.NewFile(unit.Name(), unit.Path(), lang.Java)}
	for _, line := range newlineRe.Split(unit.Content(), -1) {
		m.step(strings.TrimSpace(line))
	}
	return m.file, nil
}

type javaMachine struct {
	file    *model.File
	state   lineState
	docBuf  []string
	pending *doc.Block
	active  *model.Class
}

func (m *javaMachine) step(line string) {
	switch m.state {
	case stateDocBlock:
		if strings.HasSuffix(line, commentClose) {
			m.docBuf = append(m.docBuf, strings.TrimSpace(strings.TrimSuffix(line, commentClose)))
			m.finishDoc()
			return
		}
		m.docBuf = append(m.docBuf, line)
		return
	case statePlainComment:
		if strings.HasSuffix(line, commentClose) {
			m.state = stateNormal
		}
		return
	}

	switch {
	case strings.HasPrefix(line, docOpen) && line != "/**/":
		m.pending = nil
		rest := strings.TrimSpace(line[len(docOpen):])
		if strings.HasSuffix(rest, commentClose) {
			m.docBuf = []string{strings.TrimSpace(strings.TrimSuffix(rest, commentClose))}
			m.finishDoc()
			return
		}
		m.docBuf = []string{rest}
		m.state = stateDocBlock
	case strings.HasPrefix(line, commentOpen):
		if !strings.HasSuffix(line, commentClose) {
			m.state = statePlainComment
		}
	case strings.HasPrefix(line, lineComment):
	case line == "" || line == "{" || line == "}" || line == ";":
		m.pending = nil
	default:
		m.declaration(line)
	}
}

// finishDoc builds the pending block. Leading '*' markers are left for
// doc.Normalize, which removes exactly one per line.
func (m *javaMachine) finishDoc() {
	m.pending = doc.New(strings.Join(m.docBuf, "\n"))
	m.docBuf = nil
	m.state = stateNormal
}

// takeDoc returns the pending block and clears it.
func (m *javaMachine) takeDoc() *doc.Block {
	b := m.pending
	m.pending = nil
	return b
}

func (m *javaMachine) declaration(line string) {
	if g := classRe.FindStringSubmatch(line); g != nil {
		c := model.NewClass(g[2], model.KindFromKeyword(g[1]))
		c.Doc = m.takeDoc()
		m.file.AddClass(c)
		m.active = c
		return
	}

	if m.active != nil {
		if g := methodRe.FindStringSubmatch(line); g != nil && isType(g[1]) {
			meth := model.NewMethod(g[2], line, g[1])
			if b := m.takeDoc(); b != nil {
				meth.SetDoc(b)
			}
			m.active.AddMethod(meth)
			return
		}
		if g := fieldRe.FindStringSubmatch(line); g != nil && isType(g[1]) {
			m.active.AddField(&model.Field{Name: g[2], Type: g[1], Doc: m.takeDoc()})
			return
		}
	}

	// Anything else orphans the pending block.
	m.pending = nil
}

func isType(s string) bool {
	_, kw := notTypes[s]
	return !kw
}
