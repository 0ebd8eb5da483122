package render

import (
	"bytes"
	"encoding/xml"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
)

// XMLGenerator serializes the whole model tree as indented XML.
type XMLGenerator struct{}

func NewXMLGenerator() *XMLGenerator { return &XMLGenerator{} }

func (*XMLGenerator) Format() string { return FormatXML }

func (*XMLGenerator) Generate(p *model.Project) (Artifact, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(toDoc(orEmpty(p))); err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "encode xml")
	}
	buf.WriteByte('\n')
	return &Text{Format: FormatXML, MediaType: "application/xml", Extension: "xml", Body: buf.String()}, nil
}

// ParseXML rebuilds a project from XMLGenerator output.
func ParseXML(data []byte) (*model.Project, error) {
	var pd projectDoc
	if err := xml.Unmarshal(data, &pd); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "decode xml")
	}
	return fromDoc(pd), nil
}
