// Package config loads run settings from a YAML file and SIGTEST_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest/reporter"
)

// Environment variables that override file settings.
const (
	EnvFormat      = "SIGTEST_FORMAT"
	EnvVerbose     = "SIGTEST_VERBOSE"
	EnvMemCheck    = "SIGTEST_MEMCHECK"
	EnvLogLevel    = "SIGTEST_LOG_LEVEL"
	EnvOutputLimit = "SIGTEST_OUTPUT_LIMIT"
)

var (
	ErrInvalidLevel = errors.New("config: invalid log level")
	ErrInvalidLimit = errors.New("config: invalid output limit")
)

// MemCheck configures the leak tracker.
type MemCheck struct {
	Enabled    bool `yaml:"enabled"`
	Backtraces bool `yaml:"backtraces"`
	Histogram  bool `yaml:"histogram"`
}

// JSON configures the JSON reporter.
type JSON struct {
	Canonical bool `yaml:"canonical"`
}

// Config holds run settings.
type Config struct {
	Format   string   `yaml:"format"`
	Verbose  bool     `yaml:"verbose"`
	LogLevel string   `yaml:"log_level"`
	LogDir   string   `yaml:"log_dir"`
	MemCheck MemCheck `yaml:"memcheck"`
	JSON     JSON     `yaml:"json"`

	// OutputLimit caps report messages, as a size such as "512" or "4KiB".
	// Empty means no limit.
	OutputLimit string `yaml:"output_limit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:   string(reporter.FormatConsole),
		LogLevel: "info",
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SIGTEST_* variables. Values that do not
// parse are ignored with a warning.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvFormat); ok {
		if f, err := reporter.ParseFormat(v); err == nil {
			c.Format = string(f)
		} else {
			logging.Warn("ignoring environment override", "var", EnvFormat, "value", v, "error", err)
		}
	}
	if v, ok := os.LookupEnv(EnvVerbose); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		} else {
			logging.Warn("ignoring environment override", "var", EnvVerbose, "value", v, "error", err)
		}
	}
	if v, ok := os.LookupEnv(EnvMemCheck); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MemCheck.Enabled = b
		} else {
			logging.Warn("ignoring environment override", "var", EnvMemCheck, "value", v, "error", err)
		}
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		if _, valid := logging.ParseLevel(v); valid {
			c.LogLevel = v
		} else {
			logging.Warn("ignoring environment override", "var", EnvLogLevel, "value", v)
		}
	}
	if v, ok := os.LookupEnv(EnvOutputLimit); ok {
		if _, err := parseLimit(v); err == nil {
			c.OutputLimit = v
		} else {
			logging.Warn("ignoring environment override", "var", EnvOutputLimit, "value", v, "error", err)
		}
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := reporter.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.LogLevel)
	}
	if _, err := parseLimit(c.OutputLimit); err != nil {
		return err
	}
	return nil
}

// MaxMessage returns OutputLimit in bytes, 0 when unset or invalid.
func (c Config) MaxMessage() int {
	n, err := parseLimit(c.OutputLimit)
	if err != nil {
		return 0
	}
	return n
}

// ReporterOptions returns reporter settings derived from c.
func (c Config) ReporterOptions() reporter.Options {
	opts := reporter.DefaultOptions()
	opts.Verbose = c.Verbose
	opts.Canonical = c.JSON.Canonical
	opts.MaxMessage = c.MaxMessage()
	return opts
}

// LoggingOptions returns diagnostic logger settings derived from c.
// Logging is enabled when a log directory is set or the level is debug.
func (c Config) LoggingOptions() logging.Options {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return logging.Options{
		Enabled: c.LogDir != "" || lvl <= slog.LevelDebug,
		LogDir:  c.LogDir,
		Level:   lvl,
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidLimit, s, err)
	}
	if n > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %q exceeds int max value", ErrInvalidLimit, s)
	}
	return int(n), nil
}
