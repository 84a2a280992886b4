package sigtest

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	lineWidth       = 80
	timestampLayout = "2006-01-02  15:04:05"
	memReportTitle  = "===== Memory Allocations Report "
)

var separator = strings.Repeat("=", lineWidth)

// console is the built-in hook set: headers, aligned result lines and
// totals on the suite stream.
type console struct{}

// DefaultHooks returns the console hook set. Custom tables can call it to
// chain their own output with the default formatting.
func DefaultHooks() Hooks { return console{} }

func (console) Name() string { return DefaultTableName }
func (console) Context() any { return nil }

func (console) BeforeSuite(info *SuiteInfo, ctx *ExecContext) {
	l := ctx.Logger
	l.Printf("[%d] %-25s : %4d : %20s\n", info.Sequence, info.Name, info.Count, ctx.Now().Format(timestampLayout))
	l.Printf("%s\n", separator)
}

func (console) AfterSuite(info *SuiteInfo, ctx *ExecContext) {
	c := info.Counters
	l := ctx.Logger
	l.Printf("%s\n", separator)
	l.Printf("[%d]     TESTS=%3d        PASS=%3d        FAIL=%3d        SKIP=%3d\n",
		info.Sequence, c.Total, c.Passed, c.Failed, c.Skipped)
}

func (console) BeforeCase(*ExecContext) {}
func (console) AfterCase(*ExecContext)  {}
func (console) CaseEnd(*ExecContext)    {}

func (console) CaseStart(ctx *ExecContext) {
	if ctx.Case == nil {
		return
	}
	line := "Running: " + padRight(ctx.Case.Name, 40)
	ctx.Logger.Printf("%s", line)
	ctx.markRunning(utf8.RuneCountInString(line))
}

func (console) OnError(msg string, ctx *ExecContext) {
	if !ctx.Verbose || ctx.Case == nil {
		return
	}
	ctx.Logger.Log("Error in test [%s]: %s", ctx.Case.Name, msg)
}

func (console) OnResult(info *CaseInfo, ctx *ExecContext) {
	l := ctx.Logger
	status := formatStatus(info.Elapsed, info.Result.State)
	width := utf8.RuneCountInString(status)

	if ctx.runningOpen {
		pad := max(lineWidth-ctx.runningLen-width, 1)
		l.Printf("%*s%s\n", pad, "", status)
		ctx.runningOpen = false
		if info.Result.State == Fail && info.Result.Message != "" {
			l.Printf("  - %s\n", info.Result.Message)
		}
		return
	}

	if info.Result.State == Fail && info.Result.Message != "" {
		l.Printf("  - %s\n", info.Result.Message)
	}
	l.Printf("%*s\n", lineWidth, status)
}

func (console) OnAlloc(int, uintptr, *ExecContext) {}
func (console) OnFree(uintptr, *ExecContext)       {}

func (console) OnSuiteSummary(_ *SuiteInfo, ctx *ExecContext, s Summary) {
	l := ctx.Logger
	l.Printf("\n%s%s\n", memReportTitle, strings.Repeat("=", lineWidth-len(memReportTitle)))
	if leaks := s.Allocs.Outstanding(); leaks > 0 {
		l.Printf("WARNING: MEMORY LEAK - %d unfreed allocation(s)\n", leaks)
	} else if s.Allocs.Allocs > 0 {
		l.Printf("Memory clean - all %d allocations freed.\n", s.Allocs.Allocs)
	}
	l.Printf("  Total mallocs:               %d\n", s.Allocs.Allocs)
	l.Printf("  Total frees:                 %d\n", s.Allocs.Frees)
}

func formatStatus(d time.Duration, s State) string {
	return fmt.Sprintf("%.3f µs [%s]", float64(d)/float64(time.Microsecond), s)
}

func padRight(s string, n int) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
