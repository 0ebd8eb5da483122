// Package config loads docgen settings: built-in defaults, then
// .docgen.yaml, then DOCGEN_* environment variables.
package config

// FileName is the configuration file searched for in the project root.
const FileName = ".docgen.yaml"

// Config is the complete docgen configuration.
type Config struct {
	Project  ProjectConfig  `yaml:"project" mapstructure:"project"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Discover DiscoverConfig `yaml:"discover" mapstructure:"discover"`
	PDF      PDFConfig      `yaml:"pdf" mapstructure:"pdf"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ProjectConfig names the documented project.
type ProjectConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// OutputConfig selects the output format and destination.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // xml, yaml, toon, markdown, html or pdf
	Dir    string `yaml:"dir" mapstructure:"dir"`       // base directory for html document sets
	File   string `yaml:"file" mapstructure:"file"`     // empty: stdout for text, documentation.pdf for binary
}

// DiscoverConfig controls which files are read.
type DiscoverConfig struct {
	Languages    []string `yaml:"languages" mapstructure:"languages"`         // empty: every known language
	MaxFileSize  int64    `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes
	IncludeTests bool     `yaml:"include_tests" mapstructure:"include_tests"` // document test sources too
	Exclude      []string `yaml:"exclude" mapstructure:"exclude"`             // glob patterns over relative paths
}

// PDFConfig controls the binary document layout.
type PDFConfig struct {
	PageSize string  `yaml:"page_size" mapstructure:"page_size"` // A4 or Letter
	FontSize float64 `yaml:"font_size" mapstructure:"font_size"` // points
	FontFile string  `yaml:"font_file" mapstructure:"font_file"` // UTF-8 TrueType font; empty: built-in cp1252 fonts
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{Name: "Generated Documentation"},
		Output: OutputConfig{
			Format: "xml",
			Dir:    "generated-docs-html",
		},
		Discover: DiscoverConfig{
			Languages:   []string{},
			MaxFileSize: 1 << 20,
			Exclude:     []string{},
		},
		PDF: PDFConfig{
			PageSize: "A4",
			FontSize: 11,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
