package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/docgen/internal/config"
	"github.com/phobologic/docgen/internal/errors"
)

const (
	sentinelStart = "# docgen:start"
	sentinelEnd   = "# docgen:end"
)

func newInitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.FileName + " configuration",
		Long: `Write the default docgen configuration to ` + config.FileName + ` in dir
(default: the current directory). The settings are wrapped in sentinel
comments so the block can be refreshed in place on subsequent runs without
touching surrounding comments. Creates the file if it does not exist.

Settings outside the block would duplicate its keys, so init refuses to
write into a file that already defines them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

func runInit(cmd *cobra.Command, args []string, dryRun bool) error {
	stdout := cmd.OutOrStdout()

	section, err := generateSection()
	if err != nil {
		return err
	}

	// --dry-run with no dir: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	path := filepath.Join(dir, config.FileName)

	existing, _ := os.ReadFile(path)
	if keys, err := keysOutsideSection(string(existing)); err != nil {
		return errors.Wrapf(err, errors.KindConfiguration, "parsing %s", path)
	} else if len(keys) > 0 {
		return errors.Attr(
			errors.Errorf(errors.KindConfiguration, "%s already defines %s outside the docgen block",
				path, strings.Join(keys, ", ")),
			"path", path)
	}
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote docgen configuration to %s\n", path)
	return nil
}

// generateSection returns the sentinel-wrapped default configuration.
func generateSection() (string, error) {
	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "encode default config")
	}
	header := "# Default settings written by `docgen init`. Running init again resets\n" +
		"# this block; environment variables DOCGEN_<SECTION>_<KEY> override it.\n"
	return sentinelStart + "\n" + header + strings.TrimRight(string(body), "\n") + "\n" + sentinelEnd, nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}

// keysOutsideSection returns the sorted top-level YAML keys defined in
// content outside the sentinel block.
func keysOutsideSection(content string) ([]string, error) {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)
	if start >= 0 && end > start {
		content = content[:start] + content[end+len(sentinelEnd):]
	}

	var m map[string]any
	if err := yaml.Unmarshal([]byte(content), &m); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
