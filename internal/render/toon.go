package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/xref"
)

// TOONGenerator renders the model as TOON (Token-Oriented Object Notation)
// tables. Files are listed by cross-reference rank, highest first.
type TOONGenerator struct{}

func NewTOONGenerator() *TOONGenerator { return &TOONGenerator{} }

func (*TOONGenerator) Format() string { return FormatTOON }

func (*TOONGenerator) Generate(p *model.Project) (Artifact, error) {
	return &Text{Format: FormatTOON, MediaType: "text/plain", Extension: "toon", Body: EncodeTOON(orEmpty(p)) + "\n"}, nil
}

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeTOON converts a project into TOON tables.
func EncodeTOON(p *model.Project) string {
	ix := xref.Build(p)

	var parts []string
	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(p.Name)))

	var fileRows [][]string
	for _, f := range ix.Ordered(p) {
		fileRows = append(fileRows, []string{
			f.FilePath,
			f.Language,
			fmt.Sprintf("%d", len(f.Classes)),
			fmt.Sprintf("%.4f", ix.Rank(xref.Key(f))),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "classes", "rank"}, fileRows))

	var classRows, memberRows, paramRows [][]string
	for _, f := range p.Files {
		for _, c := range f.Classes {
			classRows = append(classRows, []string{f.FilePath, c.Name, string(c.Kind), description(c.Doc)})
			for _, fld := range c.Fields {
				memberRows = append(memberRows, []string{c.Name, fld.Name, "field", fld.Type, description(fld.Doc)})
			}
			for _, m := range c.Methods {
				memberRows = append(memberRows, []string{c.Name, m.Name, "method", m.ReturnType, description(m.Doc())})
				for _, prm := range m.Parameters() {
					paramRows = append(paramRows, []string{c.Name + "." + m.Name, prm.Name, prm.Description})
				}
			}
		}
	}
	parts = append(parts, formatTabular("classes", []string{"file", "name", "kind", "description"}, classRows))
	parts = append(parts, formatTabular("members", []string{"class", "name", "kind", "type", "description"}, memberRows))
	parts = append(parts, formatTabular("params", []string{"method", "name", "description"}, paramRows))

	var refRows [][]string
	for _, r := range ix.References() {
		refRows = append(refRows, []string{r.Source, r.Target, strings.Join(r.Types, " ")})
	}
	parts = append(parts, formatTabular("references", []string{"source", "target", "types"}, refRows))

	return strings.Join(parts, "\n")
}

func description(b *doc.Block) string {
	if b == nil {
		return ""
	}
	return b.Description()
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
