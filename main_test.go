package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/phobologic/docgen/internal/config"
	"github.com/phobologic/docgen/internal/discover"
	"github.com/phobologic/docgen/internal/render"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const accountJava = `package bank;

/** A bank account. */
public class Account {
    /** Current balance. */
    private long balance;

    /**
     * Deposits money.
     * @param amount the amount
     * @return the new balance
     */
    public long deposit(long amount) {
        balance += amount;
        return balance;
    }
}
`

const bankJava = `package bank;

/** Holds accounts. */
public class Bank {
    /** Accounts by owner. */
    private java.util.Map<String, Account> accounts;

    /**
     * Opens an account.
     * @param owner the owner
     * @return the account
     */
    public Account open(String owner) {
        return null;
    }
}
`

const ledgerPy = `class Ledger:
    """Records transactions."""

    entries: list = []
    """Recorded entries."""

    def record(self, amount: int) -> None:
        """Appends an entry."""
        self.entries.append(amount)
`

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "src/bank/Account.java", accountJava)
	writeTestFile(t, dir, "src/bank/Bank.java", bankJava)
	writeTestFile(t, dir, "ledger.py", ledgerPy)
	writeTestFile(t, dir, "README.md", "# bank\n")
	return dir
}

func TestRunGenerateXML(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "--project", "Bank", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	if !strings.HasPrefix(stdout.String(), "<?xml") {
		t.Fatalf("expected XML output, got:\n%s", stdout.String())
	}
	p, err := render.ParseXML(stdout.Bytes())
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	if p.Name != "Bank" {
		t.Errorf("project name = %q, want Bank", p.Name)
	}
	c := p.Count()
	if c.Files != 3 || c.Classes != 3 || c.Methods != 3 {
		t.Errorf("counts = %+v, want 3 files, 3 classes, 3 methods", c)
	}
	// Files are reported relative to the single root, in path order.
	want := []string{"ledger.py", "src/bank/Account.java", "src/bank/Bank.java"}
	for i, f := range p.Files {
		if f.FilePath != want[i] {
			t.Errorf("file %d = %q, want %q", i, f.FilePath, want[i])
		}
	}
}

func TestRunGenerateTextFormats(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"toon", []string{"project: Generated Documentation", "references[1]{source,target,types}:", "  src/bank/Bank.java,src/bank/Account.java,Account"}},
		{"markdown", []string{"# Generated Documentation", "### class `Bank`", "**Returns:**"}},
		{"YAML", []string{"name: Generated Documentation", "name: Ledger"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			if err := run([]string{"generate", "-f", tt.format, dir}, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
			}
			for _, w := range tt.want {
				if !strings.Contains(stdout.String(), w) {
					t.Errorf("missing %q in:\n%s", w, stdout.String())
				}
			}
		})
	}
}

func TestRunGenerateOutputFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := filepath.Join(t.TempDir(), "api.md")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "markdown", "-o", out, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", stdout.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Deposits money.") {
		t.Errorf("output file missing method doc:\n%s", data)
	}
}

func TestRunGeneratePDF(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := filepath.Join(t.TempDir(), "api.pdf")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "pdf", "-o", out, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != out {
		t.Errorf("stdout = %q, want %q", stdout.String(), out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRunGenerateHTML(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	base := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "html", "--output-dir", base, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	entry := strings.TrimSpace(stdout.String())
	if filepath.Base(entry) != "index.html" || !strings.HasPrefix(entry, base) {
		t.Fatalf("unexpected entry %q", entry)
	}
	index, err := os.ReadFile(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), "Account_java.html") {
		t.Errorf("index missing file page link:\n%s", index)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(entry), "css", "style.css")); err != nil {
		t.Errorf("stylesheet not written: %v", err)
	}
}

func TestRunGenerateSingleFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	file := filepath.Join(dir, "src", "bank", "Account.java")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", file}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "files[1]{path,language,classes,rank}:") {
		t.Errorf("expected one file:\n%s", out)
	}
	if !strings.Contains(out, "Account,balance,field,long,Current balance.") {
		t.Errorf("missing documented field:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "docgen "+version+"\n" {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunFormats(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"formats"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "formats:   html, markdown, pdf, toon, xml, yaml\nlanguages: java, python\n"
	if stdout.String() != want {
		t.Errorf("formats output:\n%s\nwant:\n%s", stdout.String(), want)
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no documentable files")
	}
	if !strings.Contains(err.Error(), "no documentable files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "-l", "rust", t.TempDir()}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "-f", "docx", dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), `unsupported format "docx"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunLanguageFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "-l", "python", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "files[1]") || !strings.Contains(out, "ledger.py") {
		t.Errorf("expected only ledger.py:\n%s", out)
	}
	if strings.Contains(out, "Account.java") {
		t.Errorf("java files should be filtered out:\n%s", out)
	}
}

func TestRunNotAPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", filepath.Join(t.TempDir(), "missing")}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "Small.java", "public class Small {\n}\n")
	writeTestFile(t, dir, "Big.java", "public class Big {\n"+strings.Repeat("    int x;\n", 50)+"}\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "-f", "toon", "--max-file-size", "100", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "Small.java") {
		t.Error("missing Small.java")
	}
	if strings.Contains(out, "Big.java") {
		t.Error("Big.java should be filtered out")
	}
	if !strings.Contains(stderr.String(), "skipped oversized file") || !strings.Contains(stderr.String(), "Big.java") {
		t.Errorf("expected warning about skipped file, got:\n%s", stderr.String())
	}
}

func TestRunIncludeTests(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "Calc.java", "public class Calc {\n}\n")
	writeTestFile(t, dir, "CalcTest.java", "public class CalcTest {\n}\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(stdout.String(), "CalcTest.java") {
		t.Errorf("test sources should be skipped by default:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"generate", "-f", "toon", "--include-tests", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "CalcTest.java") {
		t.Errorf("--include-tests should keep test sources:\n%s", stdout.String())
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, ".docgen.yaml", "project:\n  name: Configured\noutput:\n  format: toon\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "project: Configured\n") {
		t.Errorf("config file not applied:\n%s", stdout.String())
	}

	// Flags win over the file.
	stdout.Reset()
	if err := run([]string{"generate", "-f", "markdown", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "# Configured\n") {
		t.Errorf("format flag not applied:\n%s", stdout.String())
	}
}

func TestRunExplicitConfigMissing(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", filepath.Join(dir, "nope.yaml"), "generate", dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"generate", "--cache", cachePath, dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cacheData, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("cache not created: %v", err)
	}
	head, body, _ := strings.Cut(string(cacheData), "\n")
	if !strings.HasPrefix(head, "xml ") || !strings.HasPrefix(body, "<?xml") {
		t.Errorf("cache should start with its key line, got %q", cacheData[:min(len(cacheData), 40)])
	}

	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"generate", "--cache", cachePath, dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}

	// A cache written for another format is not reused.
	var stdout3, stderr3 bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "--cache", cachePath, dir}, &stdout3, &stderr3); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if !strings.HasPrefix(stdout3.String(), "project: ") {
		t.Errorf("expected fresh toon output, got:\n%s", stdout3.String())
	}
}

func TestRunCacheProjectNameChange(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "--project", "First", "--cache", cachePath, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stdout.Reset()
	if err := run([]string{"generate", "-f", "toon", "--project", "Second", "--cache", cachePath, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Second") || strings.Contains(stdout.String(), "First") {
		t.Errorf("renamed project served from stale cache:\n%s", stdout.String())
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	a := []input{{abs: "/r/A.java", path: "A.java"}}
	ab := []input{{abs: "/r/A.java", path: "A.java"}, {abs: "/r/B.java", path: "B.java"}}

	base := cacheKey("xml", "P", a)
	if !strings.HasPrefix(base, "xml ") {
		t.Errorf("key %q should start with the format", base)
	}
	if cacheKey("xml", "P", a) != base {
		t.Error("key should be stable")
	}
	for name, other := range map[string]string{
		"format":  cacheKey("yaml", "P", a),
		"project": cacheKey("xml", "Q", a),
		"inputs":  cacheKey("xml", "P", ab),
	} {
		if other == base {
			t.Errorf("changing %s should change the key", name)
		}
	}
}

func TestReadCache(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c")

	if _, ok := readCache(path, "xml"); ok {
		t.Error("missing cache should not be usable")
	}
	if err := writeCache(path, "yaml", "name: p\n"); err != nil {
		t.Fatal(err)
	}
	if _, ok := readCache(path, "xml"); ok {
		t.Error("cache for another format should not be usable")
	}
	body, ok := readCache(path, "yaml")
	if !ok || body != "name: p\n" {
		t.Errorf("readCache = %q, %v", body, ok)
	}
}

func TestRunMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "-n", "1", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	// Account.java is the only file referenced from elsewhere.
	if !strings.Contains(out, "files[1]{path,language,classes,rank}:\n  src/bank/Account.java,") {
		t.Errorf("expected only Account.java:\n%s", out)
	}
}

func TestRunClassFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "--class", "bank", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	// Bank names Account, so both are kept; Ledger is unrelated.
	if !strings.Contains(out, "files[2]") || strings.Contains(out, "ledger.py") {
		t.Errorf("expected Bank and Account only:\n%s", out)
	}
}

func TestRunFilterSkipsCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-n", "1", "--cache", cachePath, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Error("filtered output should not be cached")
	}
}

func TestRunExclude(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-f", "toon", "--exclude", "**/Bank.java", "--exclude", "*.py", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "files[1]") || !strings.Contains(out, "Account.java") {
		t.Errorf("expected only Account.java:\n%s", out)
	}
}

func TestGenerationWatchRegenerates(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := filepath.Join(t.TempDir(), "docs.toon")

	cfg := config.Default()
	cfg.Output.Format = "toon"
	cfg.Output.File = out
	g := &generation{
		svc:    newService(cfg, zerolog.Nop()),
		cfg:    cfg,
		logger: zerolog.Nop(),
		stdout: io.Discard,
		args:   []string{dir},
		opts:   discover.Options{Languages: []string{"java", "python"}},
	}
	if err := g.once(); err != nil {
		t.Fatalf("initial generation: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.watch(ctx, g.opts.Languages) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch: %v", err)
		}
	}()

	// Rewrite until the watcher is registered and picks the change up.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		writeTestFile(t, dir, "src/bank/Vault.java", "public class Vault { int gold; }\n")
		time.Sleep(200 * time.Millisecond)
		if data, err := os.ReadFile(out); err == nil && strings.Contains(string(data), "Vault") {
			return
		}
	}
	t.Fatal("output was not regenerated after a source change")
}
