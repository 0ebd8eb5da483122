package render

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
)

// YAMLGenerator serializes the whole model tree as YAML.
type YAMLGenerator struct{}

func NewYAMLGenerator() *YAMLGenerator { return &YAMLGenerator{} }

func (*YAMLGenerator) Format() string { return FormatYAML }

func (*YAMLGenerator) Generate(p *model.Project) (Artifact, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toDoc(orEmpty(p))); err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.KindGeneration, "encode yaml")
	}
	return &Text{Format: FormatYAML, MediaType: "application/yaml", Extension: "yaml", Body: buf.String()}, nil
}

// ParseYAML rebuilds a project from YAMLGenerator output.
func ParseYAML(data []byte) (*model.Project, error) {
	var pd projectDoc
	if err := yaml.Unmarshal(data, &pd); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "decode yaml")
	}
	return fromDoc(pd), nil
}
