package scan

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/lang"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/source"
)

// PythonScanner builds file models from Python sources using the
// tree-sitter grammar. Class docstrings, method docstrings, and
// attribute docstrings (a string statement directly after a class-level
// assignment) become doc blocks.
type PythonScanner struct {
	grammar *lang.Grammar
}

// NewPythonScanner returns a scanner bound to the registered Python grammar.
func NewPythonScanner() *PythonScanner {
	return &PythonScanner{grammar: lang.GrammarFor(lang.Python)}
}

func (*PythonScanner) Language() string { return lang.Python }

// Scan parses unit and collects every class definition, nested ones
// flattened after their parent.
func (s *PythonScanner) Scan(unit source.Unit) (*model.File, error) {
	if isBlank(unit.Content()) || !strings.EqualFold(unit.Language(), lang.Python) {
		return nil, nil
	}
	if s.grammar == nil {
		return nil, errors.New(errors.KindConfiguration, "python grammar not registered")
	}

	src := []byte(unit.Content())
	parser := s.grammar.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "parse python source")
	}
	defer tree.Close()

	f := model.NewFile(unit.Name(), unit.Path(), lang.Python)
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if class := classNode(root.NamedChild(i)); class != nil {
			addPythonClass(f, class, src)
		}
	}
	return f, nil
}

// classNode unwraps a decorated definition and returns node when it is a
// class definition, or nil.
func classNode(node *sitter.Node) *sitter.Node {
	node = undecorate(node)
	if node != nil && node.Type() == "class_definition" {
		return node
	}
	return nil
}

func undecorate(node *sitter.Node) *sitter.Node {
	if node != nil && node.Type() == "decorated_definition" {
		return node.ChildByFieldName("definition")
	}
	return node
}

func addPythonClass(f *model.File, node *sitter.Node, src []byte) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	c := model.NewClass(lang.NodeText(name, src), model.KindClass)
	f.AddClass(c)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	c.Doc = docstring(body, src)

	var nested []*sitter.Node
	var lastField *model.Field
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if text, ok := stringStatement(stmt, src); ok {
			if i > 0 && lastField != nil && lastField.Doc == nil {
				lastField.Doc = doc.New(text)
			}
			lastField = nil
			continue
		}
		lastField = nil

		def := undecorate(stmt)
		if def == nil {
			continue
		}
		switch def.Type() {
		case "function_definition":
			if m := pythonMethod(def, src); m != nil {
				c.AddMethod(m)
			}
		case "class_definition":
			nested = append(nested, def)
		case "expression_statement":
			if fld := pythonField(def, src); fld != nil {
				c.AddField(fld)
				lastField = fld
			}
		}
	}

	for _, n := range nested {
		addPythonClass(f, n, src)
	}
}

func pythonMethod(node *sitter.Node, src []byte) *model.Method {
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	var params, returnType string
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = lang.CollapseWhitespace(lang.NodeText(p, src))
	}
	if r := node.ChildByFieldName("return_type"); r != nil {
		returnType = lang.CollapseWhitespace(lang.NodeText(r, src))
	}

	sig := "def " + lang.NodeText(name, src) + params
	if returnType != "" {
		sig += " -> " + returnType
	}

	m := model.NewMethod(lang.NodeText(name, src), sig, returnType)
	if body := node.ChildByFieldName("body"); body != nil {
		if b := docstring(body, src); b != nil {
			m.SetDoc(b)
		}
	}
	return m
}

// pythonField reads a class-level "name = value" or "name: T = value"
// statement. Tuple and attribute targets are ignored.
func pythonField(stmt *sitter.Node, src []byte) *model.Field {
	if stmt.NamedChildCount() == 0 {
		return nil
	}
	assign := stmt.NamedChild(0)
	if assign.Type() != "assignment" {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	var typ string
	if t := assign.ChildByFieldName("type"); t != nil {
		typ = lang.CollapseWhitespace(lang.NodeText(t, src))
	}
	return &model.Field{Name: lang.NodeText(left, src), Type: typ}
}

// docstring returns the doc block for the first statement of body when it
// is a bare string.
func docstring(body *sitter.Node, src []byte) *doc.Block {
	if body.NamedChildCount() == 0 {
		return nil
	}
	text, ok := stringStatement(body.NamedChild(0), src)
	if !ok {
		return nil
	}
	return doc.New(text)
}

func stringStatement(stmt *sitter.Node, src []byte) (string, bool) {
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return "", false
	}
	str := stmt.NamedChild(0)
	if str.Type() != "string" {
		return "", false
	}
	return unquote(lang.NodeText(str, src)), true
}

// unquote strips a Python string literal's prefix letters and quotes.
func unquote(lit string) string {
	lit = strings.TrimLeft(lit, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			return lit[len(q) : len(lit)-len(q)]
		}
	}
	return lit
}
