package sigtest

import (
	"fmt"
	"io"
	"time"
)

// ExecContext is the per-run state handed to every hook callback.
// The runner refreshes Phase, Logger and Data before each callback.
type ExecContext struct {
	Phase   RunnerState
	Start   time.Time
	End     time.Time
	Logger  *Logger
	Verbose bool

	// Data is the active table's Context value.
	Data any

	// Suite describes the running suite; Case is nil outside a case.
	Suite *SuiteInfo
	Case  *CaseInfo

	clock  func() time.Time
	cur    *Case
	inCase bool

	// A "Running:" line has been written without its newline.
	runningOpen bool
	runningLen  int
}

// Now returns the run clock's current time.
func (c *ExecContext) Now() time.Time {
	if c.clock == nil {
		return time.Now()
	}
	return c.clock()
}

// Elapsed returns End minus Start for the current case.
func (c *ExecContext) Elapsed() time.Duration {
	return c.End.Sub(c.Start)
}

// FailCase forces the current case to FAIL with msg.
// It does nothing outside a case.
func (c *ExecContext) FailCase(msg string) {
	if c.cur == nil {
		return
	}
	c.cur.record(Fail, msg)
	if c.Case != nil {
		c.Case.Result = c.cur.Result
	}
}

// InCase reports whether a case body is between its start and end phases.
func (c *ExecContext) InCase() bool { return c.inCase }

// markRunning records an open "Running:" line of n visible columns.
func (c *ExecContext) markRunning(n int) {
	c.runningOpen = true
	c.runningLen = n
}

// breakLine terminates a pending "Running:" line.
func (c *ExecContext) breakLine(w io.Writer) {
	if c.runningOpen {
		fmt.Fprintln(w)
		c.runningOpen = false
	}
}

// Level tags a debug line.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger writes to a suite's stream.
type Logger struct {
	w   io.Writer
	ctx *ExecContext
}

func newLogger(w io.Writer, ctx *ExecContext) *Logger {
	return &Logger{w: w, ctx: ctx}
}

// Writer returns the underlying stream.
func (l *Logger) Writer() io.Writer { return l.w }

// Write writes p to the stream unchanged.
func (l *Logger) Write(p []byte) (int, error) { return l.w.Write(p) }

// Log writes one formatted line. Inside a case the line is indented
// under the case and a pending "Running:" line is terminated first.
func (l *Logger) Log(format string, args ...any) {
	if l.ctx != nil && l.ctx.inCase {
		l.ctx.breakLine(l.w)
		io.WriteString(l.w, "  - ")
	}
	fmt.Fprintf(l.w, format, args...)
	io.WriteString(l.w, "\n")
}

// Printf writes formatted text to the stream without a trailing newline.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.w, format, args...)
}

// Debugf writes a "[LEVEL] " tagged line through Log.
func (l *Logger) Debugf(level Level, format string, args ...any) {
	l.Log("["+level.String()+"] "+format, args...)
}
