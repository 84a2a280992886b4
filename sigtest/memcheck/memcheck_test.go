package memcheck

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/alloc"
)

func clock() func() time.Time {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Microsecond)
		return now
	}
}

// runMemSuite runs one suite whose cases allocate through a
// private allocator, with tr's hooks.
func runMemSuite(t *testing.T, tr *Tracker, cases map[string]func(a *alloc.Allocator, t *sigtest.T), order []string) (*sigtest.Registry, string, int) {
	t.Helper()
	a := alloc.New()
	var out bytes.Buffer
	reg := sigtest.NewRegistry()
	reg.OpenSuite("mem", func() (io.Writer, error) { return &out, nil }, nil)
	for _, name := range order {
		body := cases[name]
		reg.AddCase(name, func(st *sigtest.T) { body(a, st) }, sigtest.KindPlain)
	}
	code := reg.Run(tr.Hooks(),
		sigtest.WithAllocator(a),
		sigtest.WithStdout(io.Discard),
		sigtest.WithClock(clock()))
	return reg, out.String(), code
}

func TestTracker_FlagsLeaksOnLastCase(t *testing.T) {
	tr := New(WithHistogram(true))
	tr.Enable()

	reg, out, code := runMemSuite(t, tr, map[string]func(*alloc.Allocator, *sigtest.T){
		"balanced": func(a *alloc.Allocator, st *sigtest.T) {
			b, err := a.Malloc(64)
			st.IsNull(err, "")
			st.IsNull(a.Free(b), "")
		},
		"leaky": func(a *alloc.Allocator, st *sigtest.T) {
			_, err := a.Malloc(16)
			st.IsNull(err, "")
			_, err = a.Malloc(40)
			st.IsNull(err, "")
		},
	}, []string{"balanced", "leaky"})

	assert.Equal(t, 1, code)
	cases := reg.Suites()[0].Cases()
	assert.Equal(t, sigtest.Pass, cases[0].Result.State)
	assert.Equal(t, sigtest.Result{State: sigtest.Fail, Message: "MemCheck: 2 leaked block(s) (56 bytes)"}, cases[1].Result)

	require.Len(t, tr.Reports(), 1)
	assert.Equal(t, Report{Suite: "mem", Blocks: 2, Bytes: 56, Peak: 64}, tr.Reports()[0])

	assert.Contains(t, out, "MemCheck (v0.0.1 Experimental) - enabled for 'mem'")
	assert.Contains(t, out, "[1] mem")
	assert.Contains(t, out, "MemCheck: 2 leaked block(s) (56 B), peak 64 B")
	assert.Contains(t, out, "MemCheck Allocation Histogram:\n")
	assert.Contains(t, out, "  16-31B   : 1\n")
	assert.Contains(t, out, "  32-63B   : 1\n")
	assert.Contains(t, out, "TESTS=  2        PASS=  1        FAIL=  1")
	assert.Zero(t, tr.LeakedBlocks())
}

func TestTracker_CleanSuitePasses(t *testing.T) {
	tr := New()
	tr.Enable()

	_, out, code := runMemSuite(t, tr, map[string]func(*alloc.Allocator, *sigtest.T){
		"grows": func(a *alloc.Allocator, st *sigtest.T) {
			b, _ := a.Malloc(8)
			b, err := a.Realloc(b, 128)
			st.IsNull(err, "")
			st.IsNull(a.Free(b), "")
		},
	}, []string{"grows"})

	assert.Equal(t, 0, code)
	assert.NotContains(t, out, "leaked block")
	assert.Equal(t, uint64(136), tr.Reports()[0].Peak)
}

func TestTracker_DisabledIgnoresLeaks(t *testing.T) {
	tr := New()
	assert.False(t, tr.IsEnabled())

	_, _, code := runMemSuite(t, tr, map[string]func(*alloc.Allocator, *sigtest.T){
		"leaky": func(a *alloc.Allocator, _ *sigtest.T) { _, _ = a.Malloc(32) },
	}, []string{"leaky"})

	assert.Equal(t, 0, code)
	assert.Equal(t, 0, tr.Reports()[0].Blocks)
}

func TestTracker_BacktracePrinted(t *testing.T) {
	tr := New(WithBacktraces(true))
	tr.Enable()

	_, out, _ := runMemSuite(t, tr, map[string]func(*alloc.Allocator, *sigtest.T){
		"leaky": func(a *alloc.Allocator, _ *sigtest.T) { _, _ = a.Malloc(4) },
	}, []string{"leaky"})

	assert.Contains(t, out, "--- MemCheck Leak Backtrace (first) ---")
	assert.Contains(t, out, "alloc.(*Allocator).Malloc")
}

func TestTracker_SwapRemove(t *testing.T) {
	tr := New()
	tr.Enable()
	tr.active = true

	const n = 3000
	for i := 1; i <= n; i++ {
		tr.track(uintptr(i), i%7, nil)
	}
	assert.Equal(t, n, tr.LeakedBlocks())
	assert.GreaterOrEqual(t, cap(tr.live), n)

	var want uint64
	for i := 1; i <= n; i++ {
		if i%3 == 0 {
			want += uint64(i % 7)
			continue
		}
		tr.untrack(uintptr(i))
	}
	assert.Equal(t, n/3, tr.LeakedBlocks())
	assert.Equal(t, want, tr.LeakedBytes())

	tr.untrack(uintptr(n + 10))
	assert.Equal(t, n/3, tr.LeakedBlocks())

	var hist bytes.Buffer
	require.NoError(t, tr.PrintHistogram(&hist))
	assert.Contains(t, hist.String(), "  <16B     : 1000\n")

	tr.Reset()
	assert.Zero(t, tr.LeakedBlocks())
	assert.Zero(t, tr.LeakedBytes())

	hist.Reset()
	require.NoError(t, tr.PrintHistogram(&hist))
	assert.Empty(t, hist.String())
}

func TestTracker_InactiveOutsideSuite(t *testing.T) {
	tr := New()
	tr.Enable()
	tr.track(0x10, 8, nil)
	assert.Zero(t, tr.LeakedBlocks())
}
