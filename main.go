// docgen generates API documentation from Java and Python sources.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phobologic/docgen/internal/config"
	"github.com/phobologic/docgen/internal/discover"
	"github.com/phobologic/docgen/internal/docgen"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/logging"
	"github.com/phobologic/docgen/internal/model"
	"github.com/phobologic/docgen/internal/ranking"
	"github.com/phobologic/docgen/internal/render"
	"github.com/phobologic/docgen/internal/scan"
	"github.com/phobologic/docgen/internal/server"
	"github.com/phobologic/docgen/internal/source"
	"github.com/phobologic/docgen/internal/watch"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "docgen",
		Short: "Generate API documentation from Java and Python sources",
		Long: `docgen scans Java and Python source files, extracts classes, fields and
methods together with their documentation comments, and renders the result
as XML, YAML, TOON, Markdown, a browsable HTML site, or a PDF document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is <root>/"+config.FileName+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newGenerateCmd(opts),
		newServeCmd(opts),
		newFormatsCmd(),
		newVersionCmd(),
		newInitCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of docgen",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docgen %s\n", version)
		},
	}
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List output formats and source languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			gens := render.Default(render.DefaultOptions())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "formats:   %s\n", strings.Join(gens.Formats(), ", "))
			fmt.Fprintf(out, "languages: %s\n", strings.Join(scan.Default().Languages(), ", "))
		},
	}
}

// setup loads configuration for rootDir and builds the logger and the
// generation service from it.
func setup(opts *globalOptions, rootDir string, stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.NewLoader(rootDir, opts.configFile).Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newService(cfg *config.Config, logger zerolog.Logger) *docgen.Service {
	gens := render.Default(render.Options{
		OutputDir: cfg.Output.Dir,
		PageSize:  cfg.PDF.PageSize,
		FontSize:  cfg.PDF.FontSize,
		FontFile:  cfg.PDF.FontFile,
	})
	return docgen.New(scan.Default(), gens, cfg.Project.Name, logger)
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documentation generation over HTTP",
		Long: `Serve accepts multipart uploads on POST /generate (fields "files" and
"format") and returns the generated documentation. HTML output is kept on
disk and browsable under /view/docs/<session>/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts, ".", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(newService(cfg, logger), logger)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// generateFlags are the command-line overrides for the generate command.
type generateFlags struct {
	format       string
	output       string
	outputDir    string
	langs        string
	project      string
	maxFileSize  int64
	cachePath    string
	includeTests bool
	maxFiles     int
	class        string
	exclude      []string
	watch        bool
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	f := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate [path...]",
		Short: "Generate documentation for source files and directories",
		Long: `Generate documents every Java and Python file found under the given
paths (default: the current directory). Directories are walked honoring
.gitignore; files are documented as given.

Examples:
  # XML to stdout
  docgen generate ./src

  # Markdown to a file
  docgen generate -f markdown -o API.md .

  # Browsable HTML site
  docgen generate -f html --output-dir site .

  # PDF
  docgen generate -f pdf -o api.pdf .

  # Only the 20 most referenced files
  docgen generate -f toon -n 20 .

  # Classes matching "account" and their direct neighbours
  docgen generate -f markdown --class account .
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", "", "output format (default from config, xml)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default stdout; documentation.<ext> for binary formats)")
	fl.StringVar(&f.outputDir, "output-dir", "", "base directory for html document sets")
	fl.StringVarP(&f.langs, "langs", "l", "", "comma-separated languages to include")
	fl.StringVar(&f.project, "project", "", "project name shown in the documentation")
	fl.Int64Var(&f.maxFileSize, "max-file-size", 0, "skip files larger than this many bytes")
	fl.StringVar(&f.cachePath, "cache", "", "cache file for text output")
	fl.BoolVar(&f.includeTests, "include-tests", false, "document test sources too")
	fl.IntVarP(&f.maxFiles, "max-files", "n", 0, "keep only the N most referenced files")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "glob patterns of relative paths to skip (repeatable)")
	fl.BoolVarP(&f.watch, "watch", "w", false, "regenerate whenever a source file changes")
	fl.StringVar(&f.class, "class", "", "keep classes whose name contains this, plus the classes they reference or are referenced by")
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, f *generateFlags, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fl.Changed("output") {
		cfg.Output.File = f.output
	}
	if fl.Changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if fl.Changed("project") {
		cfg.Project.Name = f.project
	}
	if fl.Changed("max-file-size") {
		cfg.Discover.MaxFileSize = f.maxFileSize
	}
	if fl.Changed("include-tests") {
		cfg.Discover.IncludeTests = f.includeTests
	}
	if fl.Changed("exclude") {
		cfg.Discover.Exclude = append(cfg.Discover.Exclude, f.exclude...)
	}
	if fl.Changed("langs") {
		cfg.Discover.Languages = nil
		for _, name := range strings.Split(f.langs, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Discover.Languages = append(cfg.Discover.Languages, name)
			}
		}
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	return config.Validate(cfg)
}

func runGenerate(cmd *cobra.Command, opts *globalOptions, f *generateFlags, args []string) error {
	stdout := cmd.OutOrStdout()
	if len(args) == 0 {
		args = []string{"."}
	}

	// Configuration is looked up in the first path, or its directory.
	cfgRoot := args[0]
	if info, err := os.Stat(cfgRoot); err == nil && !info.IsDir() {
		cfgRoot = filepath.Dir(cfgRoot)
	}
	cfg, logger, err := setup(opts, cfgRoot, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, f, cfg); err != nil {
		return err
	}

	svc := newService(cfg, logger)
	if !contains(svc.Formats(), cfg.Output.Format) {
		return errors.Attr(
			errors.Errorf(errors.KindConfiguration, "unsupported format %q (supported: %s)",
				cfg.Output.Format, strings.Join(svc.Formats(), ", ")),
			"format", cfg.Output.Format)
	}

	langFilter := cfg.Discover.Languages
	for _, name := range langFilter {
		if !contains(svc.Languages(), strings.ToLower(name)) {
			return errors.Attr(errors.Errorf(errors.KindValidation, "unsupported language %q", name), "language", name)
		}
	}
	if len(langFilter) == 0 {
		langFilter = svc.Languages()
	}

	var filters []docgen.Filter
	if f.class != "" {
		filters = append(filters, func(p *model.Project) *model.Project {
			return ranking.FilterByClass(p, f.class)
		})
	}
	if f.maxFiles > 0 {
		filters = append(filters, func(p *model.Project) *model.Project {
			return ranking.SelectFiles(p, f.maxFiles)
		})
	}

	g := &generation{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		args:   args,
		opts: discover.Options{
			Languages:    langFilter,
			MaxFileSize:  cfg.Discover.MaxFileSize,
			IncludeTests: cfg.Discover.IncludeTests,
			Exclude:      cfg.Discover.Exclude,
		},
		filters: filters,
		// Filtered output is never cached.
		cachePath: f.cachePath,
		cacheable: f.cachePath != "" && len(filters) == 0 && isTextFormat(cfg.Output.Format),
	}
	if err := g.once(); err != nil {
		return err
	}
	if !f.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return g.watch(ctx, langFilter)
}

// generation is one configured generate run, repeatable in watch mode.
type generation struct {
	svc       *docgen.Service
	cfg       *config.Config
	logger    zerolog.Logger
	stdout    io.Writer
	args      []string
	opts      discover.Options
	filters   []docgen.Filter
	cachePath string
	cacheable bool
}

func (g *generation) once() error {
	cfg, logger, stdout := g.cfg, g.logger, g.stdout
	inputs, err := collectInputs(g.args, g.opts, logger)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New(errors.KindValidation, "no documentable files found")
	}

	cacheable := g.cacheable
	key := cacheKey(cfg.Output.Format, cfg.Project.Name, inputs)
	if cacheable && cacheIsFresh(g.cachePath, inputs) {
		if body, ok := readCache(g.cachePath, key); ok {
			logger.Debug().Str("cache", g.cachePath).Msg("using cached output")
			return writeText(stdout, cfg.Output.File, body)
		}
	}

	units := readUnitsConcurrent(inputs, logger)
	if len(units) == 0 {
		return errors.New(errors.KindValidation, "no files could be read")
	}

	res, err := g.svc.Generate(units, cfg.Output.Format, g.filters...)
	if err != nil {
		return err
	}

	switch art := res.Artifact.(type) {
	case *render.Text:
		if cacheable {
			if err := writeCache(g.cachePath, key, art.Body); err != nil {
				logger.Warn().Err(err).Str("cache", g.cachePath).Msg("cache not written")
			}
		}
		return writeText(stdout, cfg.Output.File, art.Body)
	case *render.Binary:
		path := cfg.Output.File
		if path == "" {
			path = "documentation." + art.Extension
		}
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return errors.Wrapf(err, errors.KindGeneration, "writing %s", path)
		}
		logger.Info().Str("path", path).Int("bytes", len(art.Data)).Msg("wrote document")
		_, _ = fmt.Fprintln(stdout, path)
	case *render.DocumentSet:
		entry := filepath.Join(art.Root, art.Entry)
		logger.Info().Str("root", art.Root).Int("files", len(art.Files)).Msg("wrote document set")
		_, _ = fmt.Fprintln(stdout, entry)
	}
	return nil
}

// watch regenerates after each burst of source changes until ctx is done.
// Failed regenerations are logged and the watch continues.
func (g *generation) watch(ctx context.Context, languages []string) error {
	var dirs []string
	for _, arg := range g.args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			arg = filepath.Dir(arg)
		}
		dirs = append(dirs, arg)
	}

	w, err := watch.New(dirs, languages, 0, g.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	g.logger.Info().Strs("dirs", dirs).Msg("watching for changes")
	return w.Run(ctx, func(changed []string) {
		g.logger.Info().Int("changed", len(changed)).Msg("regenerating")
		if err := g.once(); err != nil {
			g.logger.Error().Err(err).Msg("regeneration failed")
		}
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isTextFormat(format string) bool {
	switch format {
	case render.FormatXML, render.FormatYAML, render.FormatTOON, render.FormatMarkdown:
		return true
	}
	return false
}

func writeText(stdout io.Writer, path, body string) error {
	if path == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return errors.Wrapf(err, errors.KindGeneration, "writing %s", path)
	}
	return nil
}

// input is one file to document: where to read it and the path it is
// reported under.
type input struct {
	abs  string
	path string
}

// collectInputs expands args into files. Directories are discovered; plain
// files are taken as given. With a single directory argument, reported
// paths are relative to it.
func collectInputs(args []string, opts discover.Options, logger zerolog.Logger) ([]input, error) {
	var inputs []input
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if !info.IsDir() {
			inputs = append(inputs, input{abs: abs, path: filepath.ToSlash(arg)})
			continue
		}

		res, err := discover.Files(abs, opts)
		if err != nil {
			return nil, fmt.Errorf("discovering files: %w", err)
		}
		for _, o := range res.Oversized {
			logger.Warn().
				Str("file", o.Path).
				Int64("size", o.Size).
				Int64("max", opts.MaxFileSize).
				Msg("skipped oversized file")
		}
		for _, fe := range res.Files {
			p := fe.Path
			if len(args) > 1 {
				p = filepath.ToSlash(filepath.Join(arg, fe.Path))
			}
			inputs = append(inputs, input{abs: filepath.Join(abs, filepath.FromSlash(fe.Path)), path: p})
		}
	}
	return inputs, nil
}

// readUnitsConcurrent reads every input into a source unit, keeping input
// order. Unreadable files are logged and dropped.
func readUnitsConcurrent(inputs []input, logger zerolog.Logger) []source.Unit {
	type result struct {
		index int
		unit  source.Unit
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(inputs) {
		numWorkers = len(inputs)
	}

	work := make(chan int, len(inputs))
	results := make(chan result, len(inputs))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				in := inputs[idx]
				data, err := os.ReadFile(in.abs)
				if err != nil {
					logger.Warn().Err(err).Str("file", in.path).Msg("read failed")
					continue
				}
				results <- result{
					index: idx,
					unit:  source.New(filepath.Base(in.abs), in.path, string(data)),
				}
			}
		}()
	}

	for i := range inputs {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	indexed := make([]source.Unit, len(inputs))
	valid := make([]bool, len(inputs))
	for r := range results {
		indexed[r.index] = r.unit
		valid[r.index] = true
	}

	var units []source.Unit
	for i, v := range valid {
		if v {
			units = append(units, indexed[i])
		}
	}
	return units
}

// cacheIsFresh reports whether the cache file is newer than every input.
func cacheIsFresh(cachePath string, inputs []input) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, in := range inputs {
		fi, err := os.Stat(in.abs)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

// cacheKey identifies what a cached body was generated from: the format,
// then a hash over the project name and the input paths.
func cacheKey(format, project string, inputs []input) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", project)
	for _, in := range inputs {
		fmt.Fprintf(h, "%s\x00%s\x00", in.path, in.abs)
	}
	return format + " " + hex.EncodeToString(h.Sum(nil))[:16]
}

// The cache holds its key on the first line, then the body.
func readCache(path, key string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	head, body, ok := strings.Cut(string(data), "\n")
	if !ok || head != key {
		return "", false
	}
	return body, true
}

func writeCache(path, key, body string) error {
	return os.WriteFile(path, []byte(key+"\n"+body), 0o644)
}
