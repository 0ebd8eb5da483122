package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/phobologic/docgen/internal/errors"
)

// Loader reads configuration for one project root.
type Loader struct {
	rootDir string
	file    string
}

// NewLoader returns a loader that searches rootDir for FileName. A
// non-empty file names the configuration file explicitly; it must exist.
func NewLoader(rootDir, file string) *Loader {
	return &Loader{rootDir: rootDir, file: file}
}

// Load resolves the configuration with the following priority (highest to
// lowest):
// 1. Environment variables (DOCGEN_*)
// 2. Config file
// 3. Default values
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(l.rootDir)
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DOCGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the search path is fine: defaults + env apply.
		// An explicitly named file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.file != "" {
			return nil, errors.Wrap(err, errors.KindConfiguration, "read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfiguration, "decode config")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("project.name", d.Project.Name)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.file", d.Output.File)

	v.SetDefault("discover.languages", d.Discover.Languages)
	v.SetDefault("discover.max_file_size", d.Discover.MaxFileSize)
	v.SetDefault("discover.include_tests", d.Discover.IncludeTests)
	v.SetDefault("discover.exclude", d.Discover.Exclude)

	v.SetDefault("pdf.page_size", d.PDF.PageSize)
	v.SetDefault("pdf.font_size", d.PDF.FontSize)
	v.SetDefault("pdf.font_file", d.PDF.FontFile)

	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

// Load loads the configuration for rootDir.
func Load(rootDir string) (*Config, error) {
	return NewLoader(rootDir, "").Load()
}
