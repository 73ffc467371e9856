package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gubarz/srcscan/internal/config"
	"github.com/gubarz/srcscan/internal/logging"
	"github.com/gubarz/srcscan/internal/markers"
	"github.com/gubarz/srcscan/internal/output"
	"github.com/gubarz/srcscan/internal/parser"
	"github.com/gubarz/srcscan/internal/ui"
	"github.com/gubarz/srcscan/internal/watch"
)

var version = "0.1.0"

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract regions from a file or stdin",
	Long: `Reads a file (or stdin when no file is given), extracts the text of
every kept region with the active rules and writes it to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active delimiter rules in priority order",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Write the marker table and solution files",
	Long: `Collects the story markers (such as ^STORY-12-api-1) from the synced
notes and writes a marker table, a note to marker index and one solution
file per story solution below the documentation folder.`,
	Args: cobra.NoArgs,
	RunE: runMarkers,
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Sync documentation notes whenever sources change",
	Long: `Syncs the documentation folder once, then again whenever a scanned
source changes. With a non-zero interval the sync also runs periodically.
Stops on interrupt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var rootCmd = &cobra.Command{
	Use:   "srcscan [path]",
	Short: "Extract documentation comments from source code",
	Long: `Scans source files for comment regions and extracts their text.

Print the result, copy it to the clipboard, sync it into a folder of
markdown notes, or browse it interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configErr
	},
}

// configErr is the failure of the last config load, if any
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(extractCmd, rulesCmd, markersCmd, watchCmd)

	rootCmd.PersistentFlags().String("doc-path", "", "Documentation folder for synced notes")
	rootCmd.PersistentFlags().String("test-path", "", "Root of test sources")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.Flags().StringP("output", "o", "", "Output mode: print, copy, sync")
	rootCmd.Flags().StringP("query", "q", "", "Initial search query for --browse")
	rootCmd.Flags().Bool("print", false, "Print extracted text (shorthand for -o print)")
	rootCmd.Flags().Bool("copy", false, "Copy extracted text (shorthand for -o copy)")
	rootCmd.Flags().Bool("sync", false, "Sync documentation notes (shorthand for -o sync)")
	rootCmd.Flags().Bool("browse", false, "Browse scanned files interactively")
	rootCmd.Flags().BoolP("benchmark", "b", false, "Benchmark scan time and exit")

	bindFlags()
}

func bindFlags() {
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("doc_path", rootCmd.PersistentFlags().Lookup("doc-path"))
	viper.BindPFlag("test_path", rootCmd.PersistentFlags().Lookup("test-path"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig loads the config file. A missing file is fine; a file that
// cannot be read or decoded fails the command.
func initConfig() {
	configErr = config.Init()
	if configErr != nil {
		configErr = fmt.Errorf("loading config: %w", configErr)
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := config.Logging()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return logging.NewLogger(cfg)
}

// newParser builds a parser from the configured rules and extensions
func newParser(logger *zap.Logger) (*parser.Parser, error) {
	table, err := config.Table()
	if err != nil {
		return nil, err
	}
	return parser.NewParser(table,
		parser.WithExtensions(config.GetExtensions()...),
		parser.WithGroupSize(config.GetGroupSize()),
		parser.WithLogger(logger),
	), nil
}

// resolvePath picks the source path from args or config
func resolvePath(args []string) (string, os.FileInfo, error) {
	if len(args) > 0 {
		config.SetPath(args[0])
	}

	absPath, err := filepath.Abs(config.GetPath())
	if err != nil {
		return "", nil, fmt.Errorf("error resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("path error: %w", err)
	}
	return absPath, info, nil
}

// scan parses the source path and, for directories, the configured test path
func scan(ctx context.Context, p *parser.Parser, absPath string, info os.FileInfo) (*parser.DocIndex, error) {
	if !info.IsDir() {
		index, err := p.ParseSingleFile(ctx, absPath)
		if err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		return index, nil
	}

	if _, err := p.ParseDirectory(ctx, absPath, parser.KindSource); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if testPath := config.GetTestPath(); testPath != "" {
		if _, err := p.ParseDirectory(ctx, testPath, parser.KindTest); err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
	}
	return p.Index(), nil
}

// resolveMode applies the output shorthand flags over the configured mode
func resolveMode(cmd *cobra.Command) (output.OutputMode, error) {
	if p, _ := cmd.Flags().GetBool("print"); p {
		config.SetOutput("print")
	} else if c, _ := cmd.Flags().GetBool("copy"); c {
		config.SetOutput("copy")
	} else if s, _ := cmd.Flags().GetBool("sync"); s {
		config.SetOutput("sync")
	}
	return output.ParseMode(config.GetOutput())
}

func reportDuplicates(w io.Writer, index *parser.DocIndex) {
	if len(index.Duplicates) == 0 {
		return
	}
	fmt.Fprintln(w, "Warning: duplicate note names found:")
	for _, dup := range index.Duplicates {
		fmt.Fprintf(w, "  note %q produced by:\n    - %s\n    - %s\n", dup.Name, dup.File1, dup.File2)
	}
	fmt.Fprintln(w)
}

func runScan(cmd *cobra.Command, args []string) error {
	mode, err := resolveMode(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	absPath, info, err := resolvePath(args)
	if err != nil {
		return err
	}

	p, err := newParser(logger)
	if err != nil {
		return err
	}

	benchmark, _ := cmd.Flags().GetBool("benchmark")
	start := time.Now()

	index, err := scan(cmd.Context(), p, absPath, info)
	if err != nil {
		return err
	}
	reportDuplicates(cmd.ErrOrStderr(), index)

	if benchmark {
		elapsed := time.Since(start)
		runtime.GC()
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files in %v\n", len(index.Docs), elapsed)
		fmt.Fprintf(cmd.OutOrStdout(), "Memory: Alloc=%dMB, TotalAlloc=%dMB, Sys=%dMB, HeapObjects=%d\n",
			m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024, m.HeapObjects)
		return nil
	}

	writer := output.NewWriter(config.GetDocPath()).
		WithOutput(cmd.OutOrStdout()).
		WithLogger(logger)

	if browse, _ := cmd.Flags().GetBool("browse"); browse {
		query, _ := cmd.Flags().GetString("query")
		return ui.Run(index, writer, mode, query)
	}
	return writer.Output(index, mode)
}

func runExtract(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	table, err := config.Table()
	if err != nil {
		return err
	}

	text := table.Extract(string(data))
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(cmd.OutOrStdout(), text)
	return err
}

func runRules(cmd *cobra.Command, args []string) error {
	table, err := config.Table()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, rule := range table.Rules() {
		fmt.Fprintf(out, "%2d  %-8s %q … %q", i+1, rule.Action, rule.Start, rule.End)
		for _, esc := range rule.Escapes {
			fmt.Fprintf(out, "  %q→%q", esc.Marker, esc.Replacement)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runMarkers(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	report, err := markers.NewGenerator(config.GetDocPath(), logger).Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d markers in %d notes, %d solution files\n",
		report.Markers, report.Notes, report.Solutions)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	absPath, info, err := resolvePath(args)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch needs a directory: %s", absPath)
	}

	// filter parser; every run scans with a fresh one
	filter, err := newParser(logger)
	if err != nil {
		return err
	}

	roots := []string{absPath}
	if testPath := config.GetTestPath(); testPath != "" {
		roots = append(roots, testPath)
	}

	writer := output.NewWriter(config.GetDocPath()).WithLogger(logger)
	run := func(ctx context.Context) error {
		p, err := newParser(logger)
		if err != nil {
			return err
		}
		index, err := scan(ctx, p, absPath, info)
		if err != nil {
			return err
		}
		reportDuplicates(cmd.ErrOrStderr(), index)
		res, err := writer.Sync(index)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %d written, %d unchanged, %d removed\n",
			time.Now().Format(time.TimeOnly), res.Written, res.Unchanged, res.Removed)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(run,
		watch.WithInterval(config.GetInterval()),
		watch.WithFilter(filter.Matches),
		watch.WithSkipDir(parser.SkipDir),
		watch.WithLogger(logger),
	)
	return w.Run(ctx, roots...)
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
