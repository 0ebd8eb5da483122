package render

import (
	"fmt"
	"strings"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/model"
)

// MarkdownGenerator renders a single Markdown document with one section
// per file and class, and a member table per class.
type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator { return &MarkdownGenerator{} }

func (*MarkdownGenerator) Format() string { return FormatMarkdown }

func (*MarkdownGenerator) Generate(p *model.Project) (Artifact, error) {
	return &Text{Format: FormatMarkdown, MediaType: "text/markdown", Extension: "md", Body: Markdown(orEmpty(p))}, nil
}

// Markdown renders p as a Markdown document.
func Markdown(p *model.Project) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", p.Name))
	counts := p.Count()
	sb.WriteString(fmt.Sprintf("**Files:** %d · **Classes:** %d · **Methods:** %d\n\n", counts.Files, counts.Classes, counts.Methods))
	sb.WriteString("---\n\n")

	for _, f := range p.Files {
		if len(f.Classes) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("## `%s`\n\n", f.FilePath))
		if f.Language != "" {
			sb.WriteString(fmt.Sprintf("**Language:** %s\n\n", f.Language))
		}

		for _, c := range f.Classes {
			sb.WriteString(fmt.Sprintf("### %s `%s`\n\n", c.Kind, c.Name))
			if d := description(c.Doc); d != "" {
				sb.WriteString(d + "\n\n")
			}
			writeTags(&sb, c.Doc)

			if len(c.Fields) > 0 {
				sb.WriteString("#### Fields\n\n")
				sb.WriteString("| Name | Type | Description |\n")
				sb.WriteString("|------|------|-------------|\n")
				for _, fld := range c.Fields {
					sb.WriteString(fmt.Sprintf("| `%s` | `%s` | %s |\n", fld.Name, fld.Type, cell(description(fld.Doc))))
				}
				sb.WriteString("\n")
			}

			if len(c.Methods) > 0 {
				sb.WriteString("#### Methods\n\n")
				for _, m := range c.Methods {
					sb.WriteString(fmt.Sprintf("##### `%s`\n\n", m.Name))
					sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", m.Signature))
					if d := description(m.Doc()); d != "" {
						sb.WriteString(d + "\n\n")
					}
					if params := m.Parameters(); len(params) > 0 {
						sb.WriteString("| Parameter | Description |\n")
						sb.WriteString("|-----------|-------------|\n")
						for _, prm := range params {
							sb.WriteString(fmt.Sprintf("| `%s` | %s |\n", prm.Name, cell(prm.Description)))
						}
						sb.WriteString("\n")
					}
					if ret, ok := m.Return(); ok {
						sb.WriteString(fmt.Sprintf("**Returns:** %s\n\n", ret))
					}
				}
			}
		}
	}

	return sb.String()
}

// writeTags lists the tags other than param and return.
func writeTags(sb *strings.Builder, b *doc.Block) {
	if b == nil {
		return
	}
	wrote := false
	for _, t := range b.Tags().All() {
		if t.Name == doc.TagParam || t.Name == doc.TagReturn {
			continue
		}
		sb.WriteString(fmt.Sprintf("- **@%s** %s\n", t.Name, t.Value))
		wrote = true
	}
	if wrote {
		sb.WriteString("\n")
	}
}

// cell flattens text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
