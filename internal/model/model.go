// Package model defines the documentation model tree:
// Project → File → Class → {Field, Method → Parameter}.
package model

import (
	"github.com/phobologic/docgen/internal/doc"
)

// ClassKind is the declared type-kind of a class-like declaration.
type ClassKind string

const (
	KindClass      ClassKind = "class"
	KindInterface  ClassKind = "interface"
	KindEnum       ClassKind = "enum"
	KindAnnotation ClassKind = "annotation"
)

// KindFromKeyword maps a declaration keyword to a ClassKind. Unrecognized
// keywords are kept verbatim; the set is open.
func KindFromKeyword(keyword string) ClassKind {
	switch keyword {
	case "class":
		return KindClass
	case "interface":
		return KindInterface
	case "enum":
		return KindEnum
	case "@interface", "annotation":
		return KindAnnotation
	default:
		return ClassKind(keyword)
	}
}

// Parameter documents one method parameter, derived from a "param" tag.
type Parameter struct {
	Name        string
	Description string
}

// Field is a documented field declaration.
type Field struct {
	Name string
	Type string
	Doc  *doc.Block
}

// Method is a documented method declaration. Its parameters are derived from
// the attached documentation block and cannot be set directly.
type Method struct {
	Name       string
	Signature  string
	ReturnType string

	doc    *doc.Block
	params []Parameter
}

// NewMethod creates a Method with no documentation.
func NewMethod(name, signature, returnType string) *Method {
	return &Method{Name: name, Signature: signature, ReturnType: returnType}
}

// SetDoc attaches b and replaces the parameter list with b's "param" tags.
// A nil block clears both.
func (m *Method) SetDoc(b *doc.Block) {
	m.doc = b
	m.params = nil
	if b == nil {
		return
	}
	for _, p := range b.Params() {
		m.params = append(m.params, Parameter{Name: p.Name, Description: p.Description})
	}
}

// Doc returns the attached documentation block, or nil.
func (m *Method) Doc() *doc.Block { return m.doc }

// Parameters returns a copy of the derived parameter list.
func (m *Method) Parameters() []Parameter {
	return append([]Parameter(nil), m.params...)
}

// Return returns the attached block's "return" tag, if any.
func (m *Method) Return() (string, bool) {
	if m.doc == nil {
		return "", false
	}
	return m.doc.Return()
}

// Class is a class-like declaration with its members.
type Class struct {
	Name    string
	Kind    ClassKind
	Doc     *doc.Block
	Fields  []*Field
	Methods []*Method
}

// NewClass creates an empty class.
func NewClass(name string, kind ClassKind) *Class {
	return &Class{Name: name, Kind: kind}
}

func (c *Class) AddField(f *Field)   { c.Fields = append(c.Fields, f) }
func (c *Class) AddMethod(m *Method) { c.Methods = append(c.Methods, m) }

// File holds the classes found in one source unit.
type File struct {
	FileName string
	FilePath string
	Language string
	Classes  []*Class
}

// NewFile creates an empty file model.
func NewFile(name, path, language string) *File {
	return &File{FileName: name, FilePath: path, Language: language}
}

func (f *File) AddClass(c *Class) { f.Classes = append(f.Classes, c) }

// Project is the root of the model tree.
type Project struct {
	Name  string
	Files []*File
}

// NewProject creates an empty project.
func NewProject(name string) *Project {
	return &Project{Name: name}
}

func (p *Project) AddFile(f *File) { p.Files = append(p.Files, f) }

// Counts totals the entities in a project tree.
type Counts struct {
	Files      int
	Classes    int
	Fields     int
	Methods    int
	Parameters int
}

// Count walks the tree and totals each entity kind.
func (p *Project) Count() Counts {
	var c Counts
	c.Files = len(p.Files)
	for _, f := range p.Files {
		c.Classes += len(f.Classes)
		for _, cl := range f.Classes {
			c.Fields += len(cl.Fields)
			c.Methods += len(cl.Methods)
			for _, m := range cl.Methods {
				c.Parameters += len(m.params)
			}
		}
	}
	return c
}
