package sigtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest/alloc"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	stdout  io.Writer
	alloc   *alloc.Allocator
	hooks   *HookRegistry
	verbose bool
	clock   func() time.Time
}

// WithStdout sets where the run summary, and suites without a stream of
// their own, are written. Default: os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(c *runConfig) {
		if w != nil {
			c.stdout = w
		}
	}
}

// WithAllocator sets the allocator whose counters and events the run
// observes. Default: alloc.Default.
func WithAllocator(a *alloc.Allocator) Option {
	return func(c *runConfig) {
		if a != nil {
			c.alloc = a
		}
	}
}

// WithHookRegistry sets the registry consulted when neither the run nor a
// suite names a table. Default: the hook registry of Default.
func WithHookRegistry(r *HookRegistry) Option {
	return func(c *runConfig) {
		if r != nil {
			c.hooks = r
		}
	}
}

// WithVerbose enables verbose default output.
func WithVerbose(v bool) Option {
	return func(c *runConfig) { c.verbose = v }
}

// WithClock replaces time.Now for timing marks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *runConfig) {
		if now != nil {
			c.clock = now
		}
	}
}

// Run executes suites in order and returns 0 if no case failed, else 1.
// A non-nil table is used for every suite in place of its own.
//
// Run owns the allocator's observer for the duration of each suite, so
// concurrent runs should use separate allocators.
func Run(suites []*Suite, table *HookTable, opts ...Option) int {
	cfg := runConfig{
		stdout: os.Stdout,
		alloc:  alloc.Default,
		hooks:  Default.HookRegistry(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &runner{cfg: cfg, suites: suites, explicit: table}
	return r.run()
}

type runner struct {
	cfg      runConfig
	suites   []*Suite
	explicit *HookTable
	resolved []Hooks

	ctx   *ExecContext
	hooks Hooks

	si, ci      int
	suite       *Suite
	info        *SuiteInfo
	tc          *Case
	caseInfo    *CaseInfo
	setupFailed bool

	allocStart   alloc.Counts
	prevObserver alloc.Observer

	totals    Counters
	runAllocs alloc.Counts
}

func (r *runner) run() int {
	r.ctx = &ExecContext{Verbose: r.cfg.verbose, clock: r.cfg.clock}

	state := StateInit
	for state != StateDone {
		r.ctx.Phase = state
		next := r.step(state)
		logging.Debug("runner transition", "from", state, "to", next)
		state = next
	}
	r.ctx.Phase = StateDone

	if r.totals.Failed > 0 {
		return 1
	}
	return 0
}

func (r *runner) step(s RunnerState) RunnerState {
	switch s {
	case StateInit:
		return r.init()
	case StateSetLoop:
		return r.setLoop()
	case StateSetInit:
		return r.setInit()
	case StateBeforeSet:
		return r.beforeSet()
	case StateCaseLoop:
		return r.caseLoop()
	case StateCaseInit:
		return r.caseInit()
	case StateBeforeTest:
		return r.beforeTest()
	case StateSetup:
		return r.setup()
	case StateStart:
		return r.start()
	case StateExecute:
		return r.execute()
	case StateFuzzExecute:
		return r.fuzzExecute()
	case StateEnd:
		return r.end()
	case StateTeardown:
		return r.teardown()
	case StateAfterTest:
		return r.afterTest()
	case StateResult:
		return r.result()
	case StateAfterSet:
		return r.afterSet()
	case StateSummary:
		return r.summary()
	}
	return StateDone
}

// prepare refreshes the context handed to the next callback.
func (r *runner) prepare() {
	r.ctx.Logger = r.suite.logger
	r.ctx.Data = r.hooks.Context()
	if r.caseInfo != nil && r.tc != nil {
		r.caseInfo.Result = r.tc.Result
	}
}

func (r *runner) init() RunnerState {
	r.resolved = make([]Hooks, len(r.suites))
	for i, s := range r.suites {
		r.resolved[i] = Resolve(r.explicit, s, r.cfg.hooks)
	}
	logging.Info("run starting", "suites", len(r.suites))
	return StateSetLoop
}

func (r *runner) setLoop() RunnerState {
	for r.si < len(r.suites) && r.suites[r.si] == nil {
		r.si++
	}
	if r.si >= len(r.suites) {
		return StateSummary
	}
	r.suite = r.suites[r.si]
	r.hooks = r.resolved[r.si]
	r.ci = 0
	return StateSetInit
}

func (r *runner) setInit() RunnerState {
	s := r.suite
	s.counters = Counters{}

	out := s.out
	if out == nil {
		out = r.cfg.stdout
	}
	s.logger = newLogger(out, r.ctx)

	r.info = &SuiteInfo{
		Name:     s.Name,
		Sequence: r.si + 1,
		Count:    len(s.cases),
		Out:      out,
	}
	r.ctx.Suite = r.info
	r.ctx.Case = nil
	r.ctx.cur = nil
	r.ctx.inCase = false
	r.ctx.runningOpen = false
	r.tc = nil
	r.caseInfo = nil

	r.allocStart = r.cfg.alloc.Counts()
	logging.Debug("suite starting", "suite", s.Name, "hooks", r.hooks.Name(), "cases", len(s.cases))
	return StateBeforeSet
}

func (r *runner) beforeSet() RunnerState {
	r.prepare()
	r.hooks.BeforeSuite(r.info, r.ctx)

	// Allocation events may arrive on other goroutines, so they get a
	// snapshot of the context rather than the one the runner mutates.
	snapshot := *r.ctx
	snapshot.Data = r.hooks.Context()
	r.prevObserver = r.cfg.alloc.SetObserver(&hookObserver{hooks: r.hooks, ctx: &snapshot})
	return StateCaseLoop
}

func (r *runner) caseLoop() RunnerState {
	if r.ci >= len(r.suite.cases) {
		return StateAfterSet
	}
	return StateCaseInit
}

func (r *runner) caseInit() RunnerState {
	tc := r.suite.cases[r.ci]
	tc.record(Pass, "")
	r.tc = tc
	r.setupFailed = false
	r.caseInfo = &CaseInfo{
		Suite:       r.suite.Name,
		Name:        tc.Name,
		Index:       r.ci,
		HasNext:     r.ci+1 < len(r.suite.cases),
		Fuzz:        tc.IsFuzz(),
		ExpectFail:  tc.ExpectFail,
		ExpectThrow: tc.ExpectThrow,
	}
	r.ctx.Case = r.caseInfo
	r.ctx.cur = tc
	return StateBeforeTest
}

func (r *runner) beforeTest() RunnerState {
	r.prepare()
	r.hooks.BeforeCase(r.ctx)
	return StateSetup
}

func (r *runner) setup() RunnerState {
	if r.suite.Setup == nil {
		return StateStart
	}
	if p := guard(r.suite.Setup); p != nil {
		r.setupFailed = true
		r.tc.record(Fail, fmt.Sprintf("Setup panicked: %v", p))
		r.prepare()
		r.hooks.OnError(r.tc.Result.Message, r.ctx)
	}
	return StateStart
}

func (r *runner) start() RunnerState {
	r.ctx.Start = r.ctx.Now()
	r.ctx.End = time.Time{}
	r.ctx.inCase = true
	r.prepare()
	r.hooks.CaseStart(r.ctx)
	return StateExecute
}

func (r *runner) execute() RunnerState {
	if r.setupFailed {
		return StateEnd
	}
	if r.tc.IsFuzz() {
		return StateFuzzExecute
	}
	if p := invoke(r.tc, r.ctx, r.tc.body); p != nil {
		r.prepare()
		r.hooks.OnError(r.tc.Result.Message, r.ctx)
	}
	return StateEnd
}

func (r *runner) fuzzExecute() RunnerState {
	tc := r.tc
	n := tc.dataset.Len()
	failed := 0
	for i := range n {
		tc.record(Pass, "")
		v := tc.dataset.At(i)
		p := invoke(tc, r.ctx, func(t *T) { tc.fuzzBody(t, v) })
		if p != nil {
			r.prepare()
			r.hooks.OnError(tc.Result.Message, r.ctx)
		}
		if tc.Result.State == Fail {
			failed++
			logging.Debug("fuzz iteration failed", "case", tc.Name, "index", i, "message", tc.Result.Message)
		}
	}

	if failed > 0 {
		tc.record(Fail, fmt.Sprintf("%d of %d fuzz iterations passed", n-failed, n))
	} else {
		tc.record(Pass, "")
	}
	return StateEnd
}

func (r *runner) end() RunnerState {
	r.ctx.End = r.ctx.Now()
	r.caseInfo.Elapsed = r.ctx.Elapsed()
	r.prepare()
	r.hooks.CaseEnd(r.ctx)
	r.ctx.inCase = false
	return StateTeardown
}

func (r *runner) teardown() RunnerState {
	if r.suite.Teardown == nil {
		return StateAfterTest
	}
	if p := guard(r.suite.Teardown); p != nil {
		msg := fmt.Sprintf("Teardown panicked: %v", p)
		if r.tc.Result.State != Fail {
			r.tc.record(Fail, msg)
		}
		r.prepare()
		r.hooks.OnError(msg, r.ctx)
	}
	return StateAfterTest
}

func (r *runner) afterTest() RunnerState {
	r.prepare()
	r.hooks.AfterCase(r.ctx)
	return StateResult
}

func (r *runner) result() RunnerState {
	reconcile(r.tc)

	r.suite.counters.add(r.tc.Result.State)
	r.totals.add(r.tc.Result.State)
	r.info.Counters = r.suite.counters

	r.prepare()
	r.hooks.OnResult(r.caseInfo, r.ctx)
	logging.Debug("case finished", "suite", r.suite.Name, "case", r.tc.Name, "state", r.tc.Result.State)

	r.ctx.Case = nil
	r.ctx.cur = nil
	r.tc = nil
	r.caseInfo = nil
	r.ci++
	return StateCaseLoop
}

func (r *runner) afterSet() RunnerState {
	s := r.suite
	r.cfg.alloc.SetObserver(r.prevObserver)
	r.prevObserver = nil

	r.info.Counters = s.counters
	r.prepare()
	r.hooks.AfterSuite(r.info, r.ctx)

	if s.Cleanup != nil {
		if p := guard(s.Cleanup); p != nil {
			logging.Error("suite cleanup panicked", "suite", s.Name, "panic", p)
		}
	}

	delta := r.cfg.alloc.Counts().Sub(r.allocStart)
	r.runAllocs = r.runAllocs.Add(delta)

	r.prepare()
	r.hooks.OnSuiteSummary(r.info, r.ctx, Summary{
		Sequence:  r.info.Sequence,
		Totals:    s.counters,
		Allocs:    delta,
		RunAllocs: r.runAllocs,
	})

	logging.Debug("suite finished", "suite", s.Name,
		"passed", s.counters.Passed, "failed", s.counters.Failed, "skipped", s.counters.Skipped)
	r.si++
	return StateSetLoop
}

func (r *runner) summary() RunnerState {
	w := r.cfg.stdout
	t := r.totals
	fmt.Fprintf(w, "[%s]   Run Summary\n", r.ctx.Now().Format(timestampLayout))
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Tests run: %d, Passed: %d, Failed: %d, Skipped: %d\n", t.Total, t.Passed, t.Failed, t.Skipped)
	fmt.Fprintf(w, "Total test sets registered: %d\n", len(r.suites))
	fmt.Fprintf(w, "Total mallocs:              %d\n", r.runAllocs.Allocs)
	fmt.Fprintf(w, "Total frees:                %d\n", r.runAllocs.Frees)

	logging.Info("run finished", "total", t.Total, "passed", t.Passed, "failed", t.Failed, "skipped", t.Skipped)
	return StateDone
}

// invoke runs fn as the body of c. Assertion aborts are absorbed; any other
// panic fails c and is returned.
func invoke(c *Case, ctx *ExecContext, fn func(t *T)) (panicked any) {
	t := &T{c: c, ctx: ctx}
	defer func() {
		t.done = true
		rec := recover()
		if rec == nil {
			return
		}
		if _, ok := rec.(abort); ok {
			return
		}
		c.record(Fail, fmt.Sprintf("Unexpected panic: %v", rec))
		panicked = rec
	}()
	fn(t)
	return nil
}

// guard runs fn and returns what it panicked with, if anything.
func guard(fn func()) (panicked any) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(abort); !ok {
				panicked = rec
			}
		}
	}()
	fn()
	return nil
}

// reconcile applies expect-fail and expect-throw semantics. SKIP is kept.
func reconcile(c *Case) {
	var occurred, missed string
	switch {
	case c.ExpectFail:
		occurred, missed = "Expected failure occurred", "Expected failure but passed"
	case c.ExpectThrow:
		occurred, missed = "Expected throw occurred", "Expected throw but passed"
	default:
		return
	}
	switch c.Result.State {
	case Fail:
		c.record(Pass, occurred)
	case Pass:
		c.record(Fail, missed)
	}
}

// hookObserver forwards allocator events to the suite's hooks.
type hookObserver struct {
	hooks Hooks
	ctx   *ExecContext
}

func (o *hookObserver) OnAlloc(size int, addr uintptr) { o.hooks.OnAlloc(size, addr, o.ctx) }
func (o *hookObserver) OnFree(addr uintptr)            { o.hooks.OnFree(addr, o.ctx) }
