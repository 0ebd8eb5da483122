package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/phobologic/docgen/internal/discover"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/logging"
)

var pageSizes = map[string]string{
	"a4":     "A4",
	"letter": "Letter",
}

// Validate checks cfg and normalizes the pdf page size spelling. All
// problems are reported together as one KindValidation error.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Project.Name) == "" {
		errs = append(errs, fmt.Errorf("project.name must not be empty"))
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		errs = append(errs, fmt.Errorf("output.format must not be empty"))
	}
	if cfg.Discover.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("discover.max_file_size must be positive, got %d", cfg.Discover.MaxFileSize))
	}
	if _, err := discover.CompilePatterns(cfg.Discover.Exclude); err != nil {
		errs = append(errs, fmt.Errorf("discover.exclude: %w", err))
	}

	if size, ok := pageSizes[strings.ToLower(cfg.PDF.PageSize)]; ok {
		cfg.PDF.PageSize = size
	} else {
		errs = append(errs, fmt.Errorf("pdf.page_size must be A4 or Letter, got %q", cfg.PDF.PageSize))
	}
	if cfg.PDF.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("pdf.font_size must be positive, got %g", cfg.PDF.FontSize))
	}
	if cfg.PDF.FontFile != "" {
		if info, err := os.Stat(cfg.PDF.FontFile); err != nil || info.IsDir() {
			errs = append(errs, fmt.Errorf("pdf.font_file %q is not a readable file", cfg.PDF.FontFile))
		}
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, fmt.Errorf("server.addr must not be empty"))
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindValidation, "invalid configuration")
	}
	return nil
}
