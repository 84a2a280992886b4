package sigtest

import (
	"io"
	"sync"
	"time"

	"github.com/joshuapare/sigmatest/sigtest/alloc"
)

// SuiteInfo describes the running suite to hooks.
type SuiteInfo struct {
	Name     string
	Sequence int // 1-based position in the run
	Count    int // registered cases
	Counters Counters
	Out      io.Writer
}

// CaseInfo describes the current case to hooks.
type CaseInfo struct {
	Suite       string
	Name        string
	Index       int
	HasNext     bool
	Fuzz        bool
	ExpectFail  bool
	ExpectThrow bool
	Result      Result
	Elapsed     time.Duration
}

// Summary is handed to OnSuiteSummary once a suite has finished.
type Summary struct {
	Sequence  int
	Totals    Counters
	Allocs    alloc.Counts // this suite
	RunAllocs alloc.Counts // the run so far, this suite included
}

// HookTable is a named set of optional callbacks. A nil field falls back to
// the console default for that event.
//
// OnAlloc and OnFree may be called from any goroutine that allocates through
// the run's allocator; they must not write to the suite stream, and must
// allocate only through the allocator's Unobserved handle.
type HookTable struct {
	Name string

	BeforeSuite    func(info *SuiteInfo, ctx *ExecContext)
	AfterSuite     func(info *SuiteInfo, ctx *ExecContext)
	BeforeCase     func(ctx *ExecContext)
	AfterCase      func(ctx *ExecContext)
	CaseStart      func(ctx *ExecContext)
	CaseEnd        func(ctx *ExecContext)
	OnError        func(msg string, ctx *ExecContext)
	OnResult       func(info *CaseInfo, ctx *ExecContext)
	OnAlloc        func(size int, addr uintptr, ctx *ExecContext)
	OnFree         func(addr uintptr, ctx *ExecContext)
	OnSuiteSummary func(info *SuiteInfo, ctx *ExecContext, s Summary)

	// Context is owned by the table's callbacks and exposed as ExecContext.Data.
	Context any
}

// NewHookTable returns an empty table. The name is required.
func NewHookTable(name string) (*HookTable, error) {
	if name == "" {
		return nil, ErrHookName
	}
	return &HookTable{Name: name}, nil
}

// Hooks is the fully populated callback set the runner drives.
type Hooks interface {
	Name() string
	Context() any
	BeforeSuite(info *SuiteInfo, ctx *ExecContext)
	AfterSuite(info *SuiteInfo, ctx *ExecContext)
	BeforeCase(ctx *ExecContext)
	AfterCase(ctx *ExecContext)
	CaseStart(ctx *ExecContext)
	CaseEnd(ctx *ExecContext)
	OnError(msg string, ctx *ExecContext)
	OnResult(info *CaseInfo, ctx *ExecContext)
	OnAlloc(size int, addr uintptr, ctx *ExecContext)
	OnFree(addr uintptr, ctx *ExecContext)
	OnSuiteSummary(info *SuiteInfo, ctx *ExecContext, s Summary)
}

// withDefaults backfills every nil callback of t from d.
type withDefaults struct {
	t *HookTable
	d Hooks
}

// Backfill returns t as a Hooks with nil callbacks served by the console
// defaults. A nil t yields the defaults alone.
func Backfill(t *HookTable) Hooks {
	if t == nil {
		return DefaultHooks()
	}
	return withDefaults{t: t, d: DefaultHooks()}
}

func (h withDefaults) Name() string { return h.t.Name }
func (h withDefaults) Context() any { return h.t.Context }

func (h withDefaults) BeforeSuite(info *SuiteInfo, ctx *ExecContext) {
	if h.t.BeforeSuite != nil {
		h.t.BeforeSuite(info, ctx)
		return
	}
	h.d.BeforeSuite(info, ctx)
}

func (h withDefaults) AfterSuite(info *SuiteInfo, ctx *ExecContext) {
	if h.t.AfterSuite != nil {
		h.t.AfterSuite(info, ctx)
		return
	}
	h.d.AfterSuite(info, ctx)
}

func (h withDefaults) BeforeCase(ctx *ExecContext) {
	if h.t.BeforeCase != nil {
		h.t.BeforeCase(ctx)
		return
	}
	h.d.BeforeCase(ctx)
}

func (h withDefaults) AfterCase(ctx *ExecContext) {
	if h.t.AfterCase != nil {
		h.t.AfterCase(ctx)
		return
	}
	h.d.AfterCase(ctx)
}

func (h withDefaults) CaseStart(ctx *ExecContext) {
	if h.t.CaseStart != nil {
		h.t.CaseStart(ctx)
		return
	}
	h.d.CaseStart(ctx)
}

func (h withDefaults) CaseEnd(ctx *ExecContext) {
	if h.t.CaseEnd != nil {
		h.t.CaseEnd(ctx)
		return
	}
	h.d.CaseEnd(ctx)
}

func (h withDefaults) OnError(msg string, ctx *ExecContext) {
	if h.t.OnError != nil {
		h.t.OnError(msg, ctx)
		return
	}
	h.d.OnError(msg, ctx)
}

func (h withDefaults) OnResult(info *CaseInfo, ctx *ExecContext) {
	if h.t.OnResult != nil {
		h.t.OnResult(info, ctx)
		return
	}
	h.d.OnResult(info, ctx)
}

func (h withDefaults) OnAlloc(size int, addr uintptr, ctx *ExecContext) {
	if h.t.OnAlloc != nil {
		h.t.OnAlloc(size, addr, ctx)
		return
	}
	h.d.OnAlloc(size, addr, ctx)
}

func (h withDefaults) OnFree(addr uintptr, ctx *ExecContext) {
	if h.t.OnFree != nil {
		h.t.OnFree(addr, ctx)
		return
	}
	h.d.OnFree(addr, ctx)
}

func (h withDefaults) OnSuiteSummary(info *SuiteInfo, ctx *ExecContext, s Summary) {
	if h.t.OnSuiteSummary != nil {
		h.t.OnSuiteSummary(info, ctx, s)
		return
	}
	h.d.OnSuiteSummary(info, ctx, s)
}

// Resolve picks the table for one suite: explicit, else the suite's own,
// else the most recently registered in reg.
func Resolve(explicit *HookTable, suite *Suite, reg *HookRegistry) Hooks {
	switch {
	case explicit != nil:
		return Backfill(explicit)
	case suite != nil && suite.hooks != nil:
		return Backfill(suite.hooks)
	case reg != nil:
		return Backfill(reg.Latest())
	default:
		return DefaultHooks()
	}
}

// HookRegistry is a named collection of hook tables, searched newest first.
type HookRegistry struct {
	mu     sync.RWMutex
	tables []*HookTable
}

// DefaultTableName names the table every HookRegistry starts with.
const DefaultTableName = "default"

// NewHookRegistry returns a registry seeded with an empty "default" table.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{tables: []*HookTable{{Name: DefaultTableName}}}
}

// Register makes t the most recent table. A later table shadows an earlier
// one of the same name.
func (r *HookRegistry) Register(t *HookTable) error {
	if t == nil {
		return ErrNilHooks
	}
	if t.Name == "" {
		return ErrHookName
	}
	r.mu.Lock()
	r.tables = append(r.tables, t)
	r.mu.Unlock()
	return nil
}

// Lookup returns the most recent table registered under name.
func (r *HookRegistry) Lookup(name string) (*HookTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.tables) - 1; i >= 0; i-- {
		if r.tables[i].Name == name {
			return r.tables[i], true
		}
	}
	return nil, false
}

// Latest returns the most recently registered table.
func (r *HookRegistry) Latest() *HookTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.tables) == 0 {
		return nil
	}
	return r.tables[len(r.tables)-1]
}

// Len returns the number of registered tables, the seeded default included.
func (r *HookRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
