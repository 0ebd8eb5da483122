package render

import (
	"encoding/xml"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/docgen/internal/doc"
	"github.com/phobologic/docgen/internal/model"
)

// The structured-text formats share one document shape. List wrappers
// keep every list element present, even when empty.

type projectDoc struct {
	XMLName xml.Name `xml:"project" yaml:"-"`
	Name    string   `xml:"name" yaml:"name"`
	Files   fileList `xml:"files" yaml:"files"`
}

type fileDoc struct {
	FileName string    `xml:"fileName" yaml:"fileName"`
	FilePath string    `xml:"filePath" yaml:"filePath"`
	Language string    `xml:"language" yaml:"language"`
	Classes  classList `xml:"classes" yaml:"classes"`
}

type classDoc struct {
	Name          string     `xml:"name" yaml:"name"`
	Type          string     `xml:"type" yaml:"type"`
	Documentation docDoc     `xml:"documentation" yaml:"documentation"`
	Fields        fieldList  `xml:"fields" yaml:"fields"`
	Methods       methodList `xml:"methods" yaml:"methods"`
}

type fieldDoc struct {
	Name          string `xml:"name" yaml:"name"`
	Type          string `xml:"type" yaml:"type"`
	Documentation docDoc `xml:"documentation" yaml:"documentation"`
}

type methodDoc struct {
	Name          string    `xml:"name" yaml:"name"`
	Signature     string    `xml:"signature" yaml:"signature"`
	ReturnType    string    `xml:"returnType" yaml:"returnType"`
	Documentation docDoc    `xml:"documentation" yaml:"documentation"`
	Parameters    paramList `xml:"parameters" yaml:"parameters"`
	Return        string    `xml:"return" yaml:"return"`
}

type paramDoc struct {
	Name        string `xml:"name" yaml:"name"`
	Description string `xml:"description" yaml:"description"`
}

type docDoc struct {
	Raw         string  `xml:"raw" yaml:"raw"`
	Description string  `xml:"description" yaml:"description"`
	Tags        tagList `xml:"tags" yaml:"tags"`
}

type tagDoc struct {
	Name  string `xml:"name,attr" yaml:"name"`
	Value string `xml:",chardata" yaml:"value"`
}

type fileList struct {
	Items []fileDoc `xml:"file"`
}

type classList struct {
	Items []classDoc `xml:"class"`
}

type fieldList struct {
	Items []fieldDoc `xml:"field"`
}

type methodList struct {
	Items []methodDoc `xml:"method"`
}

type paramList struct {
	Items []paramDoc `xml:"parameter"`
}

type tagList struct {
	Items []tagDoc `xml:"tag"`
}

func (l fileList) MarshalYAML() (any, error)   { return nonNil(l.Items), nil }
func (l classList) MarshalYAML() (any, error)  { return nonNil(l.Items), nil }
func (l fieldList) MarshalYAML() (any, error)  { return nonNil(l.Items), nil }
func (l methodList) MarshalYAML() (any, error) { return nonNil(l.Items), nil }
func (l paramList) MarshalYAML() (any, error)  { return nonNil(l.Items), nil }
func (l tagList) MarshalYAML() (any, error)    { return nonNil(l.Items), nil }

func (l *fileList) UnmarshalYAML(n *yaml.Node) error   { return n.Decode(&l.Items) }
func (l *classList) UnmarshalYAML(n *yaml.Node) error  { return n.Decode(&l.Items) }
func (l *fieldList) UnmarshalYAML(n *yaml.Node) error  { return n.Decode(&l.Items) }
func (l *methodList) UnmarshalYAML(n *yaml.Node) error { return n.Decode(&l.Items) }
func (l *paramList) UnmarshalYAML(n *yaml.Node) error  { return n.Decode(&l.Items) }
func (l *tagList) UnmarshalYAML(n *yaml.Node) error    { return n.Decode(&l.Items) }

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func toDoc(p *model.Project) projectDoc {
	pd := projectDoc{Name: p.Name}
	for _, f := range p.Files {
		fd := fileDoc{FileName: f.FileName, FilePath: f.FilePath, Language: f.Language}
		for _, c := range f.Classes {
			cd := classDoc{Name: c.Name, Type: string(c.Kind), Documentation: blockDoc(c.Doc)}
			for _, fld := range c.Fields {
				cd.Fields.Items = append(cd.Fields.Items, fieldDoc{
					Name:          fld.Name,
					Type:          fld.Type,
					Documentation: blockDoc(fld.Doc),
				})
			}
			for _, m := range c.Methods {
				md := methodDoc{
					Name:          m.Name,
					Signature:     m.Signature,
					ReturnType:    m.ReturnType,
					Documentation: blockDoc(m.Doc()),
				}
				for _, prm := range m.Parameters() {
					md.Parameters.Items = append(md.Parameters.Items, paramDoc{Name: prm.Name, Description: prm.Description})
				}
				md.Return, _ = m.Return()
				cd.Methods.Items = append(cd.Methods.Items, md)
			}
			fd.Classes.Items = append(fd.Classes.Items, cd)
		}
		pd.Files.Items = append(pd.Files.Items, fd)
	}
	return pd
}

func blockDoc(b *doc.Block) docDoc {
	if b == nil {
		return docDoc{}
	}
	d := docDoc{Raw: b.Raw(), Description: b.Description()}
	for _, t := range b.Tags().All() {
		d.Tags.Items = append(d.Tags.Items, tagDoc{Name: t.Name, Value: t.Value})
	}
	return d
}

// fromDoc rebuilds a model tree. Documentation blocks are re-parsed from
// their raw text, so method parameters derive exactly as they did
// originally.
func fromDoc(pd projectDoc) *model.Project {
	p := model.NewProject(pd.Name)
	for _, fd := range pd.Files.Items {
		f := model.NewFile(fd.FileName, fd.FilePath, fd.Language)
		for _, cd := range fd.Classes.Items {
			c := model.NewClass(cd.Name, model.KindFromKeyword(cd.Type))
			c.Doc = docBlock(cd.Documentation)
			for _, fld := range cd.Fields.Items {
				c.AddField(&model.Field{Name: fld.Name, Type: fld.Type, Doc: docBlock(fld.Documentation)})
			}
			for _, md := range cd.Methods.Items {
				m := model.NewMethod(md.Name, md.Signature, md.ReturnType)
				if b := docBlock(md.Documentation); b != nil {
					m.SetDoc(b)
				}
				c.AddMethod(m)
			}
			f.AddClass(c)
		}
		p.AddFile(f)
	}
	return p
}

func docBlock(d docDoc) *doc.Block {
	if d.Raw == "" {
		return nil
	}
	return doc.New(d.Raw)
}
