package docgen

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/render"
	"github.com/phobologic/docgen/internal/scan"
	"github.com/phobologic/docgen/internal/source"
)

const calc = `public class Calc {
    /** Adds two numbers.
     * @param a first value
     * @param b second value
     * @return the sum */
    public int add(int a, int b) {
        return a + b;
    }
}
`

func newService(t *testing.T) *Service {
	t.Helper()
	return New(scan.Default(), render.Default(render.Options{OutputDir: t.TempDir()}), "", zerolog.Nop())
}

type panicScanner struct{}

func (panicScanner) Language() string { return "boom" }
func (panicScanner) Scan(source.Unit) (*model.File, error) {
	panic("index out of range")
}

type errScanner struct{}

func (errScanner) Language() string { return "broken" }
func (errScanner) Scan(source.Unit) (*model.File, error) {
	return nil, fmt.Errorf("bad input")
}

type failingGenerator struct{}

func (failingGenerator) Format() string { return "fail" }
func (failingGenerator) Generate(*model.Project) (render.Artifact, error) {
	return nil, fmt.Errorf("disk full")
}

func TestGenerateXML(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	res, err := svc.Generate([]source.Unit{
		source.New("Calc.java", "src/Calc.java", calc),
		source.New("README.md", "README.md", "# readme"),
		source.New("Empty.java", "src/Empty.java", "   \n"),
	}, "XML")
	require.NoError(t, err)

	assert.Equal(t, DefaultProjectName, res.Project.Name)
	require.Len(t, res.Project.Files, 1)
	assert.Equal(t, model.Counts{Files: 1, Classes: 1, Methods: 1, Parameters: 2}, res.Project.Count())

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, ReasonUnsupportedLanguage, res.Skipped[0].Reason)
	assert.Equal(t, "unknown", res.Skipped[0].Language)
	assert.Equal(t, ReasonNoModel, res.Skipped[1].Reason)
	assert.Empty(t, res.Failed)

	text, ok := res.Artifact.(*render.Text)
	require.True(t, ok)
	back, err := render.ParseXML([]byte(text.Body))
	require.NoError(t, err)
	assert.Equal(t, res.Project.Count(), back.Count())
}

func TestGenerateAppliesFilters(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	var order []string
	rename := func(name string) Filter {
		return func(p *model.Project) *model.Project {
			order = append(order, name)
			out := model.NewProject(p.Name + "/" + name)
			out.Files = p.Files
			return out
		}
	}
	dropAll := func(p *model.Project) *model.Project {
		return model.NewProject(p.Name)
	}

	res, err := svc.Generate([]source.Unit{
		source.New("Calc.java", "src/Calc.java", calc),
	}, "toon", rename("a"), rename("b"), dropAll)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, DefaultProjectName+"/a/b", res.Project.Name)
	assert.Empty(t, res.Project.Files)
	text := res.Artifact.(*render.Text)
	assert.Contains(t, text.Body, "files[0]")
}

func TestGenerateUnknownFormat(t *testing.T) {
	t.Parallel()

	scanned := false
	reg, err := scan.NewRegistry(scannerFunc{lang: "java", fn: func() { scanned = true }})
	require.NoError(t, err)
	svc := New(reg, render.Default(render.Options{OutputDir: t.TempDir()}), "p", zerolog.Nop())

	_, err = svc.Generate([]source.Unit{source.New("A.java", "A.java", "class A {}")}, "docx")
	require.Error(t, err)
	assert.Equal(t, errors.KindConfiguration, errors.GetKind(err))
	assert.Equal(t, "docx", errors.GetAttributes(err)["format"])
	assert.False(t, scanned, "no unit may be scanned before the format resolves")
}

type scannerFunc struct {
	lang string
	fn   func()
}

func (s scannerFunc) Language() string { return s.lang }
func (s scannerFunc) Scan(source.Unit) (*model.File, error) {
	s.fn()
	return nil, nil
}

func TestGenerateZeroUnits(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	for _, format := range svc.Formats() {
		res, err := svc.Generate(nil, format)
		require.NoError(t, err, format)
		assert.NotNil(t, res.Artifact, format)
		assert.Equal(t, model.Counts{}, res.Project.Count(), format)
	}
}

func TestGenerateUnknownLanguageNeverScanned(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	res, err := svc.Generate([]source.Unit{
		source.NewWithLanguage("Calc.txt", "Calc.txt", calc, "unknown"),
	}, "xml")
	require.NoError(t, err)
	assert.Empty(t, res.Project.Files)
	require.Len(t, res.Skipped, 1)
}

func TestGenerateRecordsScannerFailures(t *testing.T) {
	t.Parallel()

	reg, err := scan.NewRegistry(scan.NewJavaScanner(), panicScanner{}, errScanner{})
	require.NoError(t, err)
	var logs bytes.Buffer
	svc := New(reg, render.Default(render.Options{OutputDir: t.TempDir()}), "p", zerolog.New(&logs))

	res, err := svc.Generate([]source.Unit{
		source.NewWithLanguage("a.boom", "x/a.boom", "data", "boom"),
		source.New("Calc.java", "src/Calc.java", calc),
		source.NewWithLanguage("b.broken", "x/b.broken", "data", "broken"),
	}, "yaml")
	require.NoError(t, err)

	require.Len(t, res.Project.Files, 1)
	assert.Equal(t, "Calc.java", res.Project.Files[0].FileName)

	require.Len(t, res.Failed, 2)
	for i, path := range []string{"x/a.boom", "x/b.broken"} {
		f := res.Failed[i]
		assert.Equal(t, path, f.Path)
		assert.Equal(t, errors.KindParse, errors.GetKind(f.Err))
		assert.Equal(t, path, errors.GetAttributes(f.Err)["file"])
	}
	assert.Contains(t, res.Failed[0].Err.Error(), "index out of range")
	assert.Contains(t, logs.String(), "scan failed")
}

func TestGenerateGeneratorFailure(t *testing.T) {
	t.Parallel()

	gens, err := render.NewRegistry(failingGenerator{})
	require.NoError(t, err)
	svc := New(scan.Default(), gens, "p", zerolog.Nop())

	res, err := svc.Generate([]source.Unit{source.New("Calc.java", "Calc.java", calc)}, "fail")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, errors.KindGeneration, errors.GetKind(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestServiceListings(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	assert.Equal(t, []string{"html", "markdown", "pdf", "toon", "xml", "yaml"}, svc.Formats())
	assert.Equal(t, []string{"java", "python"}, svc.Languages())
}

func TestGenerateConcurrent(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := svc.Generate([]source.Unit{source.New("Calc.java", "Calc.java", calc)}, "toon")
			if err == nil && len(res.Project.Files) != 1 {
				err = fmt.Errorf("got %d files", len(res.Project.Files))
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}
