package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/srcscan/internal/scanner"
)

// loadYAML resets viper and loads doc on top of the defaults
func loadYAML(t *testing.T, doc string) error {
	t.Helper()
	viper.Reset()
	C = Config{}
	t.Cleanup(func() {
		viper.Reset()
		C = Config{}
		loadErr = nil
	})

	SetDefaults()
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(doc)))
	return Load()
}

func TestDefaults(t *testing.T) {
	require.NoError(t, loadYAML(t, ""))

	assert.Equal(t, ".", C.SourcePath)
	assert.Equal(t, "docs", C.DocPath)
	assert.Equal(t, 10, C.GroupSize)
	assert.Equal(t, "print", C.Output)
	assert.Equal(t, time.Duration(0), C.Interval)
	assert.Equal(t, DefaultExtensions, C.Extensions)
	assert.Equal(t, scanner.DefaultRules(), Rules())

	table, err := Table()
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())
}

func TestRulesFromYAML(t *testing.T) {
	doc := `
interval: 2s
rules:
  - start: "#"
    end: "\n"
    action: keep
  - start: "'"
    end: "'"
    action: ignore
    escapes:
      - marker: '\'''
        replacement: "'"
`
	require.NoError(t, loadYAML(t, doc))

	assert.Equal(t, 2*time.Second, GetInterval())

	rules := Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, scanner.Rule{Start: "#", End: "\n", Action: scanner.Keep}, rules[0])
	assert.Equal(t, scanner.Rule{
		Start:   "'",
		End:     "'",
		Action:  scanner.Discard,
		Escapes: []scanner.Escape{{Marker: `\'`, Replacement: "'"}},
	}, rules[1])

	table, err := Table()
	require.NoError(t, err)
	assert.Equal(t, " note", table.Extract("x = 'it\\'s' # note\n"))
}

func TestRulesInvalidAction(t *testing.T) {
	doc := `
rules:
  - start: "#"
    end: "\n"
    action: shout
`
	err := loadYAML(t, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shout")
}

func TestTableRejectsEmptyStart(t *testing.T) {
	doc := `
rules:
  - end: "\n"
`
	require.NoError(t, loadYAML(t, doc))

	_, err := Table()
	require.Error(t, err)
	assert.ErrorIs(t, err, scanner.ErrEmptyStart)
}

func TestGetExtensions(t *testing.T) {
	require.NoError(t, loadYAML(t, "extensions: [go, .TS, ' ', .rs]\n"))
	assert.Equal(t, []string{".go", ".ts", ".rs"}, GetExtensions())
}

func TestGetGroupSize(t *testing.T) {
	require.NoError(t, loadYAML(t, "group_size: 0\n"))
	assert.Equal(t, 1, GetGroupSize())

	viper.Set("group_size", 25)
	assert.Equal(t, 25, GetGroupSize())
}

func TestLogging(t *testing.T) {
	require.NoError(t, loadYAML(t, "log_level: debug\nlog_format: json\n"))

	cfg := Logging()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.NoError(t, cfg.Validate())
}

func TestSetters(t *testing.T) {
	require.NoError(t, loadYAML(t, ""))

	SetOutput("sync")
	assert.Equal(t, "sync", GetOutput())
	assert.Equal(t, "sync", C.Output)

	SetPath("src")
	assert.Equal(t, "src", GetPath())
	assert.Equal(t, "src", C.SourcePath)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	assert.Equal(t, "", expandTilde(""))
	assert.Equal(t, "/abs/path", expandTilde("/abs/path"))
	assert.Equal(t, filepath.Join(home, "docs"), expandTilde("~/docs"))
}

// initIn runs Init with dir as both the working and the home directory
func initIn(t *testing.T, dir string) error {
	t.Helper()
	viper.Reset()
	C = Config{}
	t.Cleanup(func() {
		viper.Reset()
		C = Config{}
		loadErr = nil
	})
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return Init()
}

func TestInitWithoutConfigFile(t *testing.T) {
	require.NoError(t, initIn(t, t.TempDir()))

	assert.Equal(t, "docs", GetDocPath())
	_, err := Table()
	assert.NoError(t, err)
}

func TestInitMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "srcscan.yaml"), []byte("rules: [unclosed\n"), 0o644))

	err := initIn(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")

	_, err = Table()
	assert.Error(t, err)
}

func TestInitUndecodableRulesIsFatal(t *testing.T) {
	dir := t.TempDir()
	doc := "rules:\n  - start: \"#\"\n    end: \"\\n\"\n    action: drop\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "srcscan.yaml"), []byte(doc), 0o644))

	err := initIn(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop")

	// the half decoded rule must not be used with its zero action
	table, err := Table()
	assert.Nil(t, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop")
}
