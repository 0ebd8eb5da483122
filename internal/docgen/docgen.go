// Package docgen is the orchestrator: it scans source units into a project
// model and hands the model to the generator for the requested format.
package docgen

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/render"
	"github.com/phobologic/docgen/internal/scan"
	"github.com/phobologic/docgen/internal/source"
)

// DefaultProjectName names the project when none is configured.
const DefaultProjectName = "Generated Documentation"

// Skip reasons.
const (
	ReasonUnsupportedLanguage = "unsupported language"
	ReasonNoModel             = "no model produced"
)

// Skipped records a unit that was excluded without error.
type Skipped struct {
	Name     string
	Path     string
	Language string
	Reason   string
}

// Failed records a unit whose scanner failed. Err has KindParse and a
// "file" attribute.
type Failed struct {
	Name string
	Path string
	Err  error
}

// Result is the outcome of one Generate call.
type Result struct {
	Artifact render.Artifact
	Project  *model.Project
	Skipped  []Skipped
	Failed   []Failed
}

// Service runs generation requests. The registries are shared read-only,
// so one Service may serve concurrent calls.
type Service struct {
	scanners    *scan.Registry
	generators  *render.Registry
	projectName string
	log         zerolog.Logger
}

// New creates a Service. An empty projectName falls back to
// DefaultProjectName.
func New(scanners *scan.Registry, generators *render.Registry, projectName string, logger zerolog.Logger) *Service {
	if strings.TrimSpace(projectName) == "" {
		projectName = DefaultProjectName
	}
	s := &Service{
		scanners:    scanners,
		generators:  generators,
		projectName: projectName,
		log:         logger.With().Str("component", "docgen").Logger(),
	}
	s.log.Debug().
		Strs("languages", scanners.Languages()).
		Strs("formats", generators.Formats()).
		Msg("service ready")
	return s
}

// Formats returns the supported output format names.
func (s *Service) Formats() []string { return s.generators.Formats() }

// Languages returns the languages that have a scanner.
func (s *Service) Languages() []string { return s.scanners.Languages() }

// Filter narrows a scanned project before it is rendered. It must not
// modify its argument.
type Filter func(*model.Project) *model.Project

// Generate builds the project from units, in input order, applies filters
// in order, and renders the result as format. An unknown format fails with KindConfiguration before any
// unit is scanned. Units without a scanner, or for which the scanner
// produced no model, are skipped; scanner failures are recorded in the
// result and do not stop the batch. A generator failure is returned as
// KindGeneration with no artifact.
func (s *Service) Generate(units []source.Unit, format string, filters ...Filter) (*Result, error) {
	gen, ok := s.generators.Lookup(format)
	if !ok {
		return nil, errors.Attr(
			errors.Errorf(errors.KindConfiguration, "unsupported format %q (supported: %s)",
				format, strings.Join(s.Formats(), ", ")),
			"format", format)
	}

	res := &Result{Project: model.NewProject(s.projectName)}
	for _, u := range units {
		sc, ok := s.scanners.Lookup(u.Language())
		if !ok {
			s.skip(res, u, ReasonUnsupportedLanguage)
			continue
		}

		f, err := scanUnit(sc, u)
		if err != nil {
			err = errors.Attr(err, "file", u.Path())
			res.Failed = append(res.Failed, Failed{Name: u.Name(), Path: u.Path(), Err: err})
			s.log.Warn().Err(err).Str("file", u.Path()).Msg("scan failed")
			continue
		}
		if f == nil {
			s.skip(res, u, ReasonNoModel)
			continue
		}
		res.Project.AddFile(f)
	}

	for _, filter := range filters {
		res.Project = filter(res.Project)
	}

	counts := res.Project.Count()
	s.log.Info().
		Int("files", counts.Files).
		Int("classes", counts.Classes).
		Int("fields", counts.Fields).
		Int("methods", counts.Methods).
		Int("skipped", len(res.Skipped)).
		Int("failed", len(res.Failed)).
		Str("format", gen.Format()).
		Msg("project scanned")

	art, err := gen.Generate(res.Project)
	if err != nil {
		if errors.GetKind(err) != errors.KindGeneration {
			err = errors.Wrapf(err, errors.KindGeneration, "generate %s", gen.Format())
		}
		s.log.Error().Err(err).Str("format", gen.Format()).Msg("generation failed")
		return nil, err
	}
	res.Artifact = art
	return res, nil
}

func (s *Service) skip(res *Result, u source.Unit, reason string) {
	res.Skipped = append(res.Skipped, Skipped{Name: u.Name(), Path: u.Path(), Language: u.Language(), Reason: reason})
	s.log.Info().
		Str("file", u.Path()).
		Str("language", u.Language()).
		Str("reason", reason).
		Msg("unit skipped")
}

// scanUnit runs sc on u, converting errors and panics to KindParse.
func scanUnit(sc scan.Scanner, u source.Unit) (f *model.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			f = nil
			err = errors.New(errors.KindParse, fmt.Sprintf("scanner panic: %v", r))
		}
	}()

	f, err = sc.Scan(u)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "scan %s", u.Name())
	}
	return f, nil
}
