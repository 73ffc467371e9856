package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/gubarz/srcscan/internal/logging"
	"github.com/gubarz/srcscan/internal/scanner"
)

// EscapeConfig is one escape substitution of a rule
type EscapeConfig struct {
	Marker      string `mapstructure:"marker"`
	Replacement string `mapstructure:"replacement"`
}

// RuleConfig is a delimiter rule as written in the config file
type RuleConfig struct {
	Start   string         `mapstructure:"start"`
	End     string         `mapstructure:"end"`
	Action  scanner.Action `mapstructure:"action"`
	Escapes []EscapeConfig `mapstructure:"escapes"`
}

// Config holds the application configuration
type Config struct {
	SourcePath    string        `mapstructure:"path"`
	TestPath      string        `mapstructure:"test_path"`
	DocPath       string        `mapstructure:"doc_path"`
	Extensions    []string      `mapstructure:"extensions"`
	GroupSize     int           `mapstructure:"group_size"`
	Output        string        `mapstructure:"output"`
	Interval      time.Duration `mapstructure:"interval"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	Rules         []RuleConfig  `mapstructure:"rules"`
	ColorHeader   string        `mapstructure:"color_header"`
	ColorPath     string        `mapstructure:"color_path"`
	ColorBorder   string        `mapstructure:"color_border"`
	ColorCursor   string        `mapstructure:"color_cursor"`
	ColorSelected string        `mapstructure:"color_selected"`
	ColorDim      string        `mapstructure:"color_dim"`
}

// C is the global config instance
var C Config

// DefaultExtensions are the source suffixes scanned when none are configured
var DefaultExtensions = []string{".go", ".java", ".kt", ".ts", ".js", ".rs", ".swift"}

// Init initializes configuration with viper
func Init() error {
	SetDefaults()

	viper.SetConfigName("srcscan")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "srcscan"))
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SRCSCAN")
	viper.AutomaticEnv()

	// A missing config file is fine, defaults apply
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			loadErr = fmt.Errorf("reading config: %w", err)
			return loadErr
		}
	}

	return Load()
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("path", ".")
	viper.SetDefault("test_path", "")
	viper.SetDefault("doc_path", "docs")
	viper.SetDefault("extensions", DefaultExtensions)
	viper.SetDefault("group_size", 10)
	viper.SetDefault("output", "print")
	viper.SetDefault("interval", "0s")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "console")
	viper.SetDefault("color_header", "36")    // Cyan
	viper.SetDefault("color_path", "32")      // Green
	viper.SetDefault("color_border", "240")   // Gray
	viper.SetDefault("color_cursor", "212")   // Pink
	viper.SetDefault("color_selected", "236") // Dark gray
	viper.SetDefault("color_dim", "241")
}

// loadErr keeps the last Init/Load failure so that Table refuses to run
// with a half decoded rule set
var loadErr error

// Load decodes the current viper state into C
func Load() error {
	loadErr = nil
	C = Config{}
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := viper.Unmarshal(&C, viper.DecodeHook(hook)); err != nil {
		loadErr = fmt.Errorf("decoding config: %w", err)
		return loadErr
	}
	return nil
}

// Rules returns the configured delimiter rules, or the default table when
// the config does not define any
func Rules() []scanner.Rule {
	if len(C.Rules) == 0 {
		return scanner.DefaultRules()
	}

	rules := make([]scanner.Rule, 0, len(C.Rules))
	for _, rc := range C.Rules {
		rule := scanner.Rule{
			Start:  rc.Start,
			End:    rc.End,
			Action: rc.Action,
		}
		for _, ec := range rc.Escapes {
			rule.Escapes = append(rule.Escapes, scanner.Escape{
				Marker:      ec.Marker,
				Replacement: ec.Replacement,
			})
		}
		rules = append(rules, rule)
	}
	return rules
}

// Table builds the delimiter table from the configured rules
func Table() (*scanner.Table, error) {
	if loadErr != nil {
		return nil, loadErr
	}
	table, err := scanner.NewTable(Rules())
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return table, nil
}

// Logging returns the logger configuration
func Logging() *logging.Config {
	return &logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	}
}

// GetPath returns the source path with tilde expansion
func GetPath() string {
	return expandTilde(viper.GetString("path"))
}

// GetTestPath returns the test source path with tilde expansion
func GetTestPath() string {
	return expandTilde(viper.GetString("test_path"))
}

// GetDocPath returns the documentation output path with tilde expansion
func GetDocPath() string {
	return expandTilde(viper.GetString("doc_path"))
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetExtensions returns the file suffixes to scan, each with a leading dot
func GetExtensions() []string {
	raw := viper.GetStringSlice("extensions")
	exts := make([]string, 0, len(raw))
	for _, ext := range raw {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, strings.ToLower(ext))
	}
	return exts
}

// GetGroupSize returns the batch size, at least 1
func GetGroupSize() int {
	return max(viper.GetInt("group_size"), 1)
}

// GetOutput returns the output mode
func GetOutput() string {
	return viper.GetString("output")
}

// GetInterval returns the watch polling interval
func GetInterval() time.Duration {
	return viper.GetDuration("interval")
}

// GetColorHeader returns the color for headers
func GetColorHeader() string {
	return viper.GetString("color_header")
}

// GetColorPath returns the color for file paths
func GetColorPath() string {
	return viper.GetString("color_path")
}

// GetColorBorder returns the color for borders and dividers
func GetColorBorder() string {
	return viper.GetString("color_border")
}

// GetColorCursor returns the color for the cursor marker
func GetColorCursor() string {
	return viper.GetString("color_cursor")
}

// GetColorSelected returns the background color of the selected row
func GetColorSelected() string {
	return viper.GetString("color_selected")
}

// GetColorDim returns the color for secondary text
func GetColorDim() string {
	return viper.GetString("color_dim")
}

// SetOutput sets output mode at runtime
func SetOutput(mode string) {
	viper.Set("output", mode)
	C.Output = mode
}

// SetPath sets path at runtime
func SetPath(path string) {
	viper.Set("path", path)
	C.SourcePath = path
}
