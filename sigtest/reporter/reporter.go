// Package reporter provides machine-readable hook tables for sigtest runs.
//
// Each reporter collects results for a suite and writes one document to the
// suite stream when the suite finishes. Per-case console output is turned
// off so the stream holds only the document.
package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joshuapare/sigmatest/sigtest"
)

// Format names an output format.
type Format string

const (
	// FormatConsole is the built-in column-aligned report.
	FormatConsole Format = "console"

	// FormatJUnit writes JUnit XML.
	FormatJUnit Format = "junit"

	// FormatJSON writes a JSON document per suite.
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatConsole, FormatJUnit, FormatJSON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Options controls reporter behavior.
type Options struct {
	// Verbose echoes a [PASS]/[FAIL]/[SKIP] line per case to Echo (JUnit),
	// or records error messages in the document (JSON).
	// Default: false
	Verbose bool

	// Echo receives verbose case lines. Colors are used only on terminals.
	// Default: os.Stdout
	Echo io.Writer

	// Canonical emits RFC 8785 canonical JSON instead of indented JSON.
	// Default: false
	Canonical bool

	// MaxMessage truncates case messages to this many runes. 0 = no limit.
	// Default: 0
	MaxMessage int

	// Hostname is recorded in JUnit suites.
	// Default: os.Hostname(), or "localhost" if that fails
	Hostname string

	// RunID identifies the run in every document.
	// Default: a random UUID
	RunID string
}

// DefaultOptions returns the defaults described on Options.
func DefaultOptions() Options {
	return Options{Echo: os.Stdout}
}

func (o Options) withDefaults() Options {
	if o.Echo == nil {
		o.Echo = os.Stdout
	}
	if o.Hostname == "" {
		h, err := os.Hostname()
		if err != nil || h == "" {
			h = "localhost"
		}
		o.Hostname = h
	}
	if o.RunID == "" {
		o.RunID = uuid.New().String()
	}
	return o
}

// New returns the hook table for f. FormatConsole yields a table with every
// callback unset, which runs the console defaults.
func New(f Format, opts Options) (*sigtest.HookTable, error) {
	switch f {
	case FormatConsole:
		return sigtest.NewHookTable(string(FormatConsole))
	case FormatJUnit:
		return NewJUnit(opts).Hooks(), nil
	case FormatJSON:
		return NewJSON(opts).Hooks(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func truncate(msg string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(msg) <= limit {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:limit]) + "..."
}

func quiet(*sigtest.ExecContext) {}

func quietSummary(*sigtest.SuiteInfo, *sigtest.ExecContext, sigtest.Summary) {}
