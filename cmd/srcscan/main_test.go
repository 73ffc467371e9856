package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI in an empty home and working directory with fresh
// flag and viper state, returning stdout and stderr
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(home)
	return executeIn(t, stdin, args...)
}

// executeIn is execute without changing the working directory
func executeIn(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	bindFlags()
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	t.Cleanup(viper.Reset)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sourceTree creates a source and a test root
func sourceTree(t *testing.T) (src, tests string) {
	t.Helper()
	src = t.TempDir()
	tests = t.TempDir()
	writeFile(t, src, "main.go", "/** Main. */\nfunc main() {}\n")
	writeFile(t, src, "pkg/util.go", "s := \"// no\" // util\n")
	writeFile(t, src, "README.md", "// not scanned\n")
	writeFile(t, tests, "util_test.go", "// checks util\n")
	return src, tests
}

func TestExtractStdin(t *testing.T) {
	out, _, err := execute(t, "x := 1 // one\ns := \"// no\" /** two */", "extract")
	require.NoError(t, err)
	assert.Equal(t, " one\n two \n", out)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("/// docs\ncode()\n"), 0o644))

	out, _, err := execute(t, "", "extract", path)
	require.NoError(t, err)
	assert.Equal(t, " docs\n", out)
}

func TestExtractMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "extract", filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	out, _, err := execute(t, "", "rules")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], `"/**"`)
	assert.Contains(t, lines[0], "keep")
	assert.Contains(t, lines[4], `"\""`)
	assert.Contains(t, lines[4], "discard")
}

func TestUndecodableConfigFailsCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	writeFile(t, dir, "srcscan.yaml", "rules:\n  - start: \"#\"\n    end: \"\\n\"\n    action: drop\n")

	cases := []struct {
		name string
		args []string
	}{
		{"extract", []string{"extract"}},
		{"rules", []string{"rules"}},
		{"scan", []string{dir}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := executeIn(t, "x # secret\n", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "drop")
			assert.NotContains(t, out, "secret")
		})
	}
}

func TestConfigFileRules(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	writeFile(t, dir, "srcscan.yaml", "rules:\n  - start: \"#\"\n    end: \"\\n\"\n    action: discard\n  - start: \"--\"\n    end: \"\\n\"\n")

	out, _, err := executeIn(t, "x # secret\ny -- shown\n", "extract")
	require.NoError(t, err)
	assert.Equal(t, " shown\n", out)
}

func TestScan(t *testing.T) {
	src, tests := sourceTree(t)

	cases := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "directory",
			args:     []string{src},
			expected: "==> main.go <==\n Main. \n\n==> pkg/util.go <==\n util\n",
		},
		{
			name: "directory with tests",
			args: []string{src, "--test-path", tests},
			expected: "==> main.go <==\n Main. \n\n==> pkg/util.go <==\n util\n" +
				"\n==> util_test.go <==\n checks util\n",
		},
		{
			name:     "single file",
			args:     []string{filepath.Join(src, "pkg", "util.go"), "--print"},
			expected: " util\n",
		},
		{
			name:     "output flag",
			args:     []string{filepath.Join(src, "main.go"), "-o", "print"},
			expected: " Main. \n",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
			assert.Empty(t, stderr)
		})
	}
}

func TestScanUnknownOutput(t *testing.T) {
	src, _ := sourceTree(t)
	_, _, err := execute(t, "", src, "-o", "exec")
	assert.Error(t, err)
}

func TestScanMissingPath(t *testing.T) {
	_, _, err := execute(t, "", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestScanSync(t *testing.T) {
	src, tests := sourceTree(t)
	docs := t.TempDir()
	orphan := writeFile(t, docs, "comments/gone.md", "old")

	out, _, err := execute(t, "", src, "--sync", "--test-path", tests, "--doc-path", docs)
	require.NoError(t, err)
	assert.Equal(t, "3 written, 0 unchanged, 1 removed\n", out)

	assert.FileExists(t, filepath.Join(docs, "comments", "main.md"))
	assert.FileExists(t, filepath.Join(docs, "comments", "pkg.util.md"))
	assert.FileExists(t, filepath.Join(docs, "test comments", "util_test.md"))
	assert.NoFileExists(t, orphan)

	out, _, err = execute(t, "", src, "--sync", "--test-path", tests, "--doc-path", docs)
	require.NoError(t, err)
	assert.Equal(t, "0 written, 3 unchanged, 0 removed\n", out)
}

func TestScanSingleFileSyncKeepsOtherNotes(t *testing.T) {
	src, _ := sourceTree(t)
	docs := t.TempDir()
	sibling := writeFile(t, docs, "comments/pkg.other.md", "[Source](file:///src/pkg/other.go)\n")

	out, _, err := execute(t, "", filepath.Join(src, "main.go"), "--sync", "--doc-path", docs)
	require.NoError(t, err)
	assert.Equal(t, "1 written, 0 unchanged, 0 removed\n", out)

	assert.FileExists(t, sibling)
	assert.FileExists(t, filepath.Join(docs, "comments", "main.md"))
}

func TestScanReportsDuplicates(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a/b.go", "// nested\n")
	writeFile(t, src, "a.b.go", "// flat\n")

	out, stderr, err := execute(t, "", src, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, " nested\n", out)
	assert.Contains(t, stderr, "Warning: duplicate note names found")
	assert.Contains(t, stderr, `"a.b.md"`)
}

func TestScanBenchmark(t *testing.T) {
	src, _ := sourceTree(t)
	out, _, err := execute(t, "", src, "--benchmark")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 2 files in")
}

func TestMarkers(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "api.go", "/** Login handler ^ST-1-api-1 */\n")
	docs := t.TempDir()

	_, _, err := execute(t, "", src, "--sync", "--doc-path", docs)
	require.NoError(t, err)

	out, _, err := execute(t, "", "markers", "--doc-path", docs)
	require.NoError(t, err)
	assert.Equal(t, "1 markers in 1 notes, 1 solution files\n", out)

	table, err := os.ReadFile(filepath.Join(docs, "marker", "marker-table.md"))
	require.NoError(t, err)
	assert.Contains(t, string(table), "|ST-1-api-1|[[comments/api.md#^ST-1-api-1]]|")
	assert.FileExists(t, filepath.Join(docs, "solutions", "ST-1", "api.md"))
}
