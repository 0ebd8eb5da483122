package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
)

// BlockStyle selects the typography of a Block.
type BlockStyle int

const (
	StyleTitle BlockStyle = iota
	StyleHeading
	StyleSubheading
	StyleBody
	StyleDetail
)

// Block is one labeled text block of the binary document.
type Block struct {
	Style BlockStyle
	Text  string
}

// Blocks walks p in model order and returns the flat block sequence the
// binary document is rendered from.
func Blocks(p *model.Project) []Block {
	p = orEmpty(p)
	var out []Block
	add := func(style BlockStyle, format string, args ...any) {
		out = append(out, Block{Style: style, Text: fmt.Sprintf(format, args...)})
	}

	add(StyleTitle, "Documentation for Project: %s", p.Name)
	add(StyleBody, "Files: %d", len(p.Files))

	for _, f := range p.Files {
		add(StyleHeading, "File: %s", f.FilePath)
		for _, c := range f.Classes {
			add(StyleSubheading, "Class: %s (%s)", c.Name, c.Kind)
			if d := description(c.Doc); d != "" {
				add(StyleBody, "%s", d)
			}
			if len(c.Fields) > 0 {
				add(StyleBody, "Fields:")
				for _, fld := range c.Fields {
					line := strings.TrimSpace(fld.Type + " " + fld.Name)
					if d := description(fld.Doc); d != "" {
						line += ": " + d
					}
					add(StyleDetail, "- %s", line)
				}
			}
			if len(c.Methods) > 0 {
				add(StyleBody, "Methods:")
				for _, m := range c.Methods {
					add(StyleDetail, "%s", m.Signature)
					if d := description(m.Doc()); d != "" {
						add(StyleDetail, "%s", d)
					}
					for _, prm := range m.Parameters() {
						add(StyleDetail, "  @param %s: %s", prm.Name, prm.Description)
					}
					if ret, ok := m.Return(); ok {
						add(StyleDetail, "  Returns: %s", ret)
					}
				}
			}
		}
	}
	return out
}

const utf8Family = "docfont"

// PDFGenerator renders Blocks as a paginated PDF.
type PDFGenerator struct {
	pageSize string
	fontSize float64
	fontFile string
}

// NewPDFGenerator returns a generator for the given page size ("A4" or
// "Letter") and body font size in points.
func NewPDFGenerator(pageSize string, fontSize float64) *PDFGenerator {
	if pageSize == "" {
		pageSize = "A4"
	}
	if fontSize <= 0 {
		fontSize = 11
	}
	return &PDFGenerator{pageSize: pageSize, fontSize: fontSize}
}

// WithFontFile makes g embed the TrueType font at path and write text as
// UTF-8. With no font file, text outside cp1252 is not representable.
func (g *PDFGenerator) WithFontFile(path string) *PDFGenerator {
	g.fontFile = path
	return g
}

func (*PDFGenerator) Format() string { return FormatPDF }

func (g *PDFGenerator) Generate(p *model.Project) (Artifact, error) {
	p = orEmpty(p)
	pdf := fpdf.New("P", "mm", g.pageSize, "")
	pdf.SetTitle("Documentation for Project: "+p.Name, true)
	pdf.SetAutoPageBreak(true, 15)

	sans, mono := "Helvetica", "Courier"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if g.fontFile != "" {
		pdf.AddUTF8Font(utf8Family, "", g.fontFile)
		pdf.AddUTF8Font(utf8Family, "B", g.fontFile)
		if err := pdf.Error(); err != nil {
			return nil, errors.Attr(errors.Wrap(err, errors.KindGeneration, "load pdf font"), "font_file", g.fontFile)
		}
		sans, mono = utf8Family, utf8Family
		tr = func(s string) string { return s }
	}
	pdf.AddPage()

	lineHeight := g.fontSize * 0.5
	for _, b := range Blocks(p) {
		switch b.Style {
		case StyleTitle:
			pdf.SetFont(sans, "B", g.fontSize+7)
		case StyleHeading:
			pdf.Ln(lineHeight / 2)
			pdf.SetFont(sans, "B", g.fontSize+3)
		case StyleSubheading:
			pdf.SetFont(sans, "B", g.fontSize+1)
		case StyleBody:
			pdf.SetFont(sans, "", g.fontSize)
		case StyleDetail:
			pdf.SetFont(mono, "", g.fontSize-1)
		}
		pdf.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "render pdf")
	}
	return &Binary{MediaType: "application/pdf", Extension: "pdf", Data: buf.Bytes()}, nil
}
