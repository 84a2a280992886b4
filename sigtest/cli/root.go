// Package cli wraps a sigtest registry in a command line front end.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/config"
	"github.com/joshuapare/sigmatest/sigtest/memcheck"
	"github.com/joshuapare/sigmatest/sigtest/reporter"
)

var errMemCheckFormat = errors.New("memcheck reports through the console format only")

// App is a command bound to one registry.
type App struct {
	reg  *sigtest.Registry
	code int

	// Global flags
	configPath string
	format     string
	verbose    bool
	memcheck   bool
	backtraces bool
	histogram  bool
	logLevel   string
	suites     []string

	// Tracker is set after a run with --memcheck.
	Tracker *memcheck.Tracker

	root *cobra.Command
}

// New builds the command tree for reg. The binary name is taken from os.Args.
func New(reg *sigtest.Registry) *App {
	a := &App{reg: reg}
	a.root = &cobra.Command{
		Use:           "sigtest",
		Short:         "Run registered test suites",
		Long:          "Runs every registered suite, or the ones named with --suite, and exits non-zero if any case failed.",
		Version:       sigtest.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	if len(os.Args) > 0 {
		a.root.Use = filepath.Base(os.Args[0])
	}

	flags := a.root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML settings file")
	flags.StringVarP(&a.format, "format", "f", "", "Output format: console, junit, json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&a.memcheck, "memcheck", false, "Fail suites that leak allocations")
	flags.BoolVar(&a.backtraces, "backtraces", false, "Print the first leak's call stack (with --memcheck)")
	flags.BoolVar(&a.histogram, "histogram", false, "Print a leak size histogram (with --memcheck)")
	flags.StringVar(&a.logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
	a.root.Flags().StringSliceVarP(&a.suites, "suite", "s", nil, "Run only the named suites (repeatable)")

	a.root.AddCommand(newVersionCmd(), newListCmd(a))
	return a
}

// Command returns the root command.
func (a *App) Command() *cobra.Command { return a.root }

// Code returns the exit code of the last run.
func (a *App) Code() int { return a.code }

// Execute runs the command with os.Args and returns the process exit code.
func Execute(reg *sigtest.Registry) int {
	a := New(reg)
	if err := a.root.Execute(); err != nil {
		fmt.Fprintf(a.root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return a.code
}

func (a *App) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		f, err := reporter.ParseFormat(a.format)
		if err != nil {
			return cfg, err
		}
		cfg.Format = string(f)
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("memcheck") {
		cfg.MemCheck.Enabled = a.memcheck
	}
	if flags.Changed("backtraces") {
		cfg.MemCheck.Backtraces = a.backtraces
	}
	if flags.Changed("histogram") {
		cfg.MemCheck.Histogram = a.histogram
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	return cfg, cfg.Validate()
}

func (a *App) run(cmd *cobra.Command, args []string) error {
	cfg, err := a.settings(cmd)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LoggingOptions()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: closing log file: %v\n", err)
		}
	}()

	suites, err := a.selected()
	if err != nil {
		return err
	}

	table, err := a.table(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a.code = sigtest.Run(suites, table,
		sigtest.WithHookRegistry(a.reg.HookRegistry()),
		sigtest.WithVerbose(cfg.Verbose),
		sigtest.WithStdout(cmd.OutOrStdout()))

	if err := a.reg.Close(); err != nil {
		logging.Warn("closing suite streams", "error", err)
	}
	return nil
}

// table returns the hook table for the run, or nil to let each suite
// resolve its own.
func (a *App) table(cfg config.Config, echo io.Writer) (*sigtest.HookTable, error) {
	if cfg.MemCheck.Enabled {
		if cfg.Format != string(reporter.FormatConsole) {
			return nil, fmt.Errorf("%w (got %s)", errMemCheckFormat, cfg.Format)
		}
		a.Tracker = memcheck.New(
			memcheck.WithBacktraces(cfg.MemCheck.Backtraces),
			memcheck.WithHistogram(cfg.MemCheck.Histogram),
		)
		a.Tracker.Enable()
		return a.Tracker.Hooks(), nil
	}

	if cfg.Format == string(reporter.FormatConsole) {
		return nil, nil
	}
	opts := cfg.ReporterOptions()
	opts.Echo = echo
	return reporter.New(reporter.Format(cfg.Format), opts)
}

func (a *App) selected() ([]*sigtest.Suite, error) {
	if len(a.suites) == 0 {
		return a.reg.Suites(), nil
	}
	out := make([]*sigtest.Suite, 0, len(a.suites))
	for _, name := range a.suites {
		s, ok := a.reg.Suite(name)
		if !ok {
			return nil, fmt.Errorf("unknown suite %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}
