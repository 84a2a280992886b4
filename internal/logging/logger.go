// Package logging carries the framework's own diagnostic logger.
//
// Report output (suite headers, results, summaries) never goes through
// here; it is written to the suite stream and standard output. This logger
// only records what the runner and its collaborators are doing, and it
// discards everything until Init enables it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	logPrefix = "sigtest-"
	logSuffix = ".log"
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination. Default: os.Stderr, or a file when LogDir is set
	LogDir  string     // Optional directory for a dated log file
	Level   slog.Level // Minimum log level
	JSON    bool       // Use the JSON handler instead of text
}

// logFile is the dated file opened for LogDir, closed by the next Init or Close.
var logFile *os.File

// Init configures logging. Call before the first run.
// If opts.Enabled is false, all log output is discarded.
// A log file opened by a previous Init is closed first.
func Init(opts Options) error {
	if err := Close(); err != nil {
		return err
	}
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	w := opts.Writer
	if w == nil && opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return err
		}
		filename := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = f
		w = f
	}
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return nil
}

// Close releases the log file opened by Init, if any, and discards
// further output.
func Close() error {
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to Info.
func ParseLevel(name string) (slog.Level, bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, false
	}
	return lvl, true
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
