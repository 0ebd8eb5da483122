package render

import (
	"bytes"
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/xref"
)

//go:embed assets/*.tmpl assets/style.css
var assets embed.FS

var pages = template.Must(template.ParseFS(assets, "assets/*.tmpl"))

const (
	indexPage = "index.html"
	stylePath = "css/style.css"
)

// HTMLGenerator writes a linked document set: index.html, one page per file
// that declares at least one class, and css/style.css. Each call writes to
// a new directory under the base directory.
type HTMLGenerator struct {
	baseDir string
	newID   func() string
}

// NewHTMLGenerator returns a generator writing under baseDir; newID names
// each output directory.
func NewHTMLGenerator(baseDir string, newID func() string) *HTMLGenerator {
	return &HTMLGenerator{baseDir: baseDir, newID: newID}
}

func (*HTMLGenerator) Format() string { return FormatHTML }

// Generate renders p. On failure the partially written directory is
// removed.
func (g *HTMLGenerator) Generate(p *model.Project) (_ Artifact, err error) {
	p = orEmpty(p)
	root := filepath.Join(g.baseDir, g.newID())
	if err := os.MkdirAll(filepath.Join(root, filepath.Dir(stylePath)), 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.KindGeneration, "create output directory %s", root)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(root)
		}
	}()

	site := buildSite(p)
	set := &DocumentSet{Root: root, Entry: indexPage}

	write := func(rel string, data []byte) error {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), data, 0o644); err != nil {
			return errors.Wrapf(err, errors.KindGeneration, "write %s", rel)
		}
		set.Files = append(set.Files, rel)
		return nil
	}
	render := func(name string, data any) ([]byte, error) {
		var buf bytes.Buffer
		if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, errors.Wrapf(err, errors.KindGeneration, "render %s", name)
		}
		return buf.Bytes(), nil
	}

	index, err := render("index.html.tmpl", site)
	if err != nil {
		return nil, err
	}
	if err := write(indexPage, index); err != nil {
		return nil, err
	}

	for _, f := range site.Files {
		page, err := render("file.html.tmpl", filePageView{Project: site.Project, File: f})
		if err != nil {
			return nil, err
		}
		if err := write(f.Page, page); err != nil {
			return nil, err
		}
	}

	css, err := assets.ReadFile("assets/style.css")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "read stylesheet")
	}
	rules, err := highlightCSS()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "render highlight stylesheet")
	}
	css = append(append(css, '\n'), rules...)
	if err := write(stylePath, css); err != nil {
		return nil, err
	}
	return set, nil
}

var pageKeyReplacer = strings.NewReplacer(".", "_", "/", "_", `\`, "_")

// PageKey derives a page name stem from a file name: every '.' becomes '_'.
// Path separators are replaced too.
func PageKey(fileName string) string {
	return pageKeyReplacer.Replace(fileName)
}

type siteView struct {
	Project string
	Files   []fileView
}

type filePageView struct {
	Project string
	File    fileView
}

type fileView struct {
	Page     string
	FileName string
	FilePath string
	Language string
	Classes  []classView
}

type classView struct {
	Name        string
	Kind        string
	Description string
	Tags        []doc.Tag
	Fields      []fieldView
	Methods     []methodView
}

type fieldView struct {
	Name        string
	Type        typeView
	Description string
	Tags        []doc.Tag
}

type methodView struct {
	ID          string
	Name        string
	Signature   template.HTML
	Type        typeView
	Description string
	Params      []model.Parameter
	Return      string
	Tags        []doc.Tag
}

type typeView struct {
	Text string
	Link string
}

func buildSite(p *model.Project) siteView {
	site := siteView{Project: p.Name}

	// Assign unique page names first so cross-file links can resolve.
	pageOf := make(map[string]string)
	used := map[string]int{strings.TrimSuffix(indexPage, ".html"): 1}
	var documented []*model.File
	for _, f := range p.Files {
		if len(f.Classes) == 0 {
			continue
		}
		key := PageKey(f.FileName)
		used[key]++
		if n := used[key]; n > 1 {
			key += "-" + strconv.Itoa(n)
		}
		if _, ok := pageOf[xref.Key(f)]; !ok {
			pageOf[xref.Key(f)] = key + ".html"
		}
		documented = append(documented, f)
		site.Files = append(site.Files, fileView{Page: key + ".html"})
	}

	ix := xref.Build(p)
	link := func(from *model.File, typ string) typeView {
		tv := typeView{Text: typ}
		if target, ok := ix.Resolve(xref.Key(from), typ); ok {
			tv.Link = pageOf[target]
		}
		return tv
	}

	for i, f := range documented {
		fv := &site.Files[i]
		fv.FileName = f.FileName
		fv.FilePath = f.FilePath
		fv.Language = f.Language
		for _, c := range f.Classes {
			cv := classView{
				Name:        c.Name,
				Kind:        string(c.Kind),
				Description: description(c.Doc),
				Tags:        extraTags(c.Doc),
			}
			for _, fld := range c.Fields {
				cv.Fields = append(cv.Fields, fieldView{
					Name:        fld.Name,
					Type:        link(f, fld.Type),
					Description: description(fld.Doc),
					Tags:        extraTags(fld.Doc),
				})
			}
			for _, m := range c.Methods {
				ret, _ := m.Return()
				cv.Methods = append(cv.Methods, methodView{
					ID:          c.Name + "." + m.Name,
					Name:        m.Name,
					Signature:   highlight(f.Language, m.Signature),
					Type:        link(f, m.ReturnType),
					Description: description(m.Doc()),
					Params:      m.Parameters(),
					Return:      ret,
					Tags:        extraTags(m.Doc()),
				})
			}
			fv.Classes = append(fv.Classes, cv)
		}
	}
	return site
}

// extraTags returns b's tags other than param and return, which are shown
// in their own sections.
func extraTags(b *doc.Block) []doc.Tag {
	if b == nil {
		return nil
	}
	var out []doc.Tag
	for _, t := range b.Tags().All() {
		if t.Name != doc.TagParam && t.Name != doc.TagReturn {
			out = append(out, t)
		}
	}
	return out
}
