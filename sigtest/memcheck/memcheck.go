// Package memcheck tracks live allocations per suite and fails the suite's
// last case when any are still outstanding at its end.
//
// The tracker sees only allocations routed through an alloc.Allocator
// observed by the runner. Its own bookkeeping uses ordinary Go memory.
package memcheck

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/alloc"
)

// TableName is the name of the tracker's hook table.
const TableName = "memcheck"

const (
	banner          = "MemCheck (v0.0.1 Experimental) - enabled for '%s'"
	initialCapacity = 1024
	maxFrames       = 32
)

type record struct {
	addr  uintptr
	size  int
	stack []uintptr
}

// Report summarises one finished suite.
type Report struct {
	Suite  string
	Blocks int
	Bytes  uint64
	Peak   uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBacktraces records a call stack for every allocation and prints the
// first leak's stack at suite end.
func WithBacktraces(enable bool) Option {
	return func(t *Tracker) { t.backtraces = enable }
}

// WithHistogram prints a size histogram of leaked blocks at suite end.
func WithHistogram(enable bool) Option {
	return func(t *Tracker) { t.histogram = enable }
}

// Tracker is a leak-detecting hook. It starts disabled.
type Tracker struct {
	mu         sync.Mutex
	enabled    bool
	backtraces bool
	histogram  bool

	suite   string
	active  bool
	live    []record
	current uint64
	peak    uint64
	reports []Report

	table *sigtest.HookTable
}

// New returns a disabled tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{}
	for _, opt := range opts {
		opt(t)
	}
	t.table = &sigtest.HookTable{
		Name:        TableName,
		BeforeSuite: t.beforeSuite,
		AfterSuite:  t.afterSuite,
		CaseEnd:     t.caseEnd,
		OnAlloc:     t.onAlloc,
		OnFree:      t.onFree,
		Context:     t,
	}
	return t
}

// Hooks returns the tracker's hook table. Callbacks it leaves unset use
// the console defaults.
func (t *Tracker) Hooks() *sigtest.HookTable { return t.table }

// Enable starts tracking.
func (t *Tracker) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
}

// Disable stops tracking. Blocks already recorded stay recorded.
func (t *Tracker) Disable() {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
}

// IsEnabled reports whether the tracker records allocations.
func (t *Tracker) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// EnableBacktraces toggles call stack capture.
func (t *Tracker) EnableBacktraces(enable bool) {
	t.mu.Lock()
	t.backtraces = enable
	t.mu.Unlock()
}

// LeakedBlocks returns the number of live blocks in the running suite.
func (t *Tracker) LeakedBlocks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// LeakedBytes returns the bytes held by live blocks in the running suite.
func (t *Tracker) LeakedBytes() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// PeakBytes returns the highest live byte count seen in the current or last suite.
func (t *Tracker) PeakBytes() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// Reports returns one report per finished suite, oldest first.
func (t *Tracker) Reports() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Report(nil), t.reports...)
}

// Reset forgets every live block.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = nil
	t.current = 0
}

// PrintHistogram writes a size histogram of the live blocks to w.
// Nothing is written when no blocks are live.
func (t *Tracker) PrintHistogram(w io.Writer) error {
	t.mu.Lock()
	var h alloc.Histogram
	for _, r := range t.live {
		h.Add(r.size)
	}
	t.mu.Unlock()

	if h.Total() == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "MemCheck Allocation Histogram:\n"); err != nil {
		return err
	}
	_, err := h.WriteTo(w)
	return err
}

func (t *Tracker) track(addr uintptr, size int, stack []uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.active {
		return
	}
	if len(t.live) == cap(t.live) {
		grown := make([]record, len(t.live), max(2*cap(t.live), initialCapacity))
		copy(grown, t.live)
		t.live = grown
	}
	t.live = append(t.live, record{addr: addr, size: size, stack: stack})
	t.current += uint64(size)
	t.peak = max(t.peak, t.current)
}

func (t *Tracker) untrack(addr uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.active || addr == 0 {
		return
	}
	for i, r := range t.live {
		if r.addr != addr {
			continue
		}
		t.current -= uint64(r.size)
		last := len(t.live) - 1
		t.live[i] = t.live[last]
		t.live[last] = record{}
		t.live = t.live[:last]
		return
	}
}

func (t *Tracker) onAlloc(size int, addr uintptr, _ *sigtest.ExecContext) {
	var stack []uintptr
	t.mu.Lock()
	capture := t.backtraces && t.enabled && t.active
	t.mu.Unlock()
	if capture {
		pcs := make([]uintptr, maxFrames)
		stack = pcs[:runtime.Callers(2, pcs)]
	}
	t.track(addr, size, stack)
}

func (t *Tracker) onFree(addr uintptr, _ *sigtest.ExecContext) {
	t.untrack(addr)
}

func (t *Tracker) beforeSuite(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext) {
	t.mu.Lock()
	t.suite = info.Name
	t.active = true
	t.live = nil
	t.current = 0
	t.peak = 0
	t.mu.Unlock()

	ctx.Logger.Printf(banner+"\n", info.Name)
	sigtest.DefaultHooks().BeforeSuite(info, ctx)
}

func (t *Tracker) caseEnd(ctx *sigtest.ExecContext) {
	if ctx.Case == nil || ctx.Case.HasNext {
		return
	}
	t.mu.Lock()
	blocks, bytes := len(t.live), t.current
	t.mu.Unlock()
	if blocks == 0 {
		return
	}
	ctx.FailCase(fmt.Sprintf("MemCheck: %d leaked block(s) (%d bytes)", blocks, bytes))
	logging.Debug("memcheck flagged leaks", "suite", ctx.Suite.Name, "case", ctx.Case.Name, "blocks", blocks, "bytes", bytes)
}

func (t *Tracker) afterSuite(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext) {
	t.mu.Lock()
	rep := Report{Suite: info.Name, Blocks: len(t.live), Bytes: t.current, Peak: t.peak}
	var first []uintptr
	if len(t.live) > 0 && t.backtraces {
		first = t.live[0].stack
	}
	t.reports = append(t.reports, rep)
	histogram := t.histogram
	t.mu.Unlock()

	l := ctx.Logger
	if rep.Blocks > 0 {
		l.Printf("MemCheck: %d leaked block(s) (%s), peak %s\n",
			rep.Blocks, humanize.IBytes(rep.Bytes), humanize.IBytes(rep.Peak))
		if histogram {
			if err := t.PrintHistogram(l); err != nil {
				logging.Warn("memcheck histogram failed", "error", err)
			}
		}
		if len(first) > 0 {
			writeStack(l, first)
		}
	}

	t.mu.Lock()
	t.active = false
	t.live = nil
	t.current = 0
	t.mu.Unlock()

	sigtest.DefaultHooks().AfterSuite(info, ctx)
}

func writeStack(w io.Writer, pcs []uintptr) {
	var b strings.Builder
	b.WriteString("\n--- MemCheck Leak Backtrace (first) ---\n")
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	b.WriteString("-----------------------------------------\n\n")
	io.WriteString(w, b.String())
}
