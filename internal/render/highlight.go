package render

import (
	"bytes"
	"html/template"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "github"

var signatureFormatter = chromahtml.New(
	chromahtml.WithClasses(true),
	chromahtml.PreventSurroundingPre(true),
)

func signatureStyle() *chroma.Style {
	s := styles.Get(highlightStyle)
	if s == nil {
		s = styles.Fallback
	}
	return s
}

// highlight renders a method signature as class-annotated HTML spans for
// the given language. Unknown languages and lexer failures fall back to
// escaped plain text.
func highlight(language, code string) template.HTML {
	plain := template.HTML(template.HTMLEscapeString(code))
	lexer := lexers.Get(language)
	if lexer == nil {
		return plain
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return plain
	}
	var buf bytes.Buffer
	if err := signatureFormatter.Format(&buf, signatureStyle(), it); err != nil {
		return plain
	}
	return template.HTML(buf.String())
}

// highlightCSS returns the stylesheet rules for highlighted signatures.
func highlightCSS() ([]byte, error) {
	var buf bytes.Buffer
	if err := signatureFormatter.WriteCSS(&buf, signatureStyle()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
