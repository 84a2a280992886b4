package reporter

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"
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

// runSuite runs a three-case suite (pass, fail, skip) with table and
// returns what the suite stream received.
func runSuite(t *testing.T, table *sigtest.HookTable, a *alloc.Allocator, extra ...sigtest.Func) string {
	t.Helper()
	var out bytes.Buffer
	reg := sigtest.NewRegistry()
	reg.OpenSuite("report", func() (io.Writer, error) { return &out, nil }, nil)
	reg.AddCase("passes", func(st *sigtest.T) {
		b, err := a.Malloc(8)
		st.IsNull(err, "")
		_, err = a.Malloc(8)
		st.IsNull(err, "")
		st.IsNull(a.Free(b), "")
	}, sigtest.KindPlain)
	reg.AddCase("fails", func(st *sigtest.T) { st.IsTrue(false, "") }, sigtest.KindPlain)
	reg.AddCase("skips", func(st *sigtest.T) { st.Skip("") }, sigtest.KindPlain)
	for i, body := range extra {
		reg.AddCase("extra"+string(rune('a'+i)), body, sigtest.KindPlain)
	}
	reg.Run(table, sigtest.WithAllocator(a), sigtest.WithStdout(io.Discard), sigtest.WithClock(clock()))
	return out.String()
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JUnit ")
	require.NoError(t, err)
	assert.Equal(t, FormatJUnit, f)

	_, err = ParseFormat("tap")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNew(t *testing.T) {
	table, err := New(FormatConsole, Options{})
	require.NoError(t, err)
	assert.Equal(t, "console", table.Name)
	assert.Nil(t, table.OnResult)

	table, err = New(FormatJSON, Options{RunID: "x", Hostname: "h"})
	require.NoError(t, err)
	assert.Equal(t, "json", table.Name)

	_, err = New(Format("tap"), Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 0))
	assert.Equal(t, "short", truncate("short", 5))
	assert.Equal(t, "µµ...", truncate("µµµµ", 2))
}

func TestJUnit_Document(t *testing.T) {
	var echo bytes.Buffer
	j := NewJUnit(Options{Verbose: true, Echo: &echo, Hostname: "ci-host", RunID: "run-1"})

	out := runSuite(t, j.Hooks(), alloc.New())
	require.True(t, strings.HasPrefix(out, xml.Header), out)

	var doc junitSuites
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "run-1", doc.ID)
	require.Len(t, doc.Suites, 1)

	s := doc.Suites[0]
	assert.Equal(t, "report", s.Name)
	assert.Equal(t, "ci-host", s.Hostname)
	assert.Equal(t, "2026-10-17T09:30:00", s.Timestamp)
	assert.Equal(t, 3, s.Tests)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, "0.000", s.Time)

	require.Len(t, s.Cases, 3)
	assert.Equal(t, "report", s.Cases[0].Classname)
	assert.Nil(t, s.Cases[0].Failure)
	require.NotNil(t, s.Cases[1].Failure)
	assert.Equal(t, "Expected true, but was false", s.Cases[1].Failure.Message)
	assert.NotNil(t, s.Cases[2].Skipped)

	assert.NotContains(t, out, "Running:")
	assert.NotContains(t, out, "Memory Allocations Report")
	assert.Equal(t, "[PASS] passes\n[FAIL] fails\n[SKIP] skips\n", echo.String())
}

func TestJSON_Document(t *testing.T) {
	j := NewJSON(Options{Verbose: true, RunID: "run-1", MaxMessage: 8})
	out := runSuite(t, j.Hooks(), alloc.New(), func(*sigtest.T) { panic("boom") })

	var doc jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, "report", doc.TestSet)
	assert.Equal(t, "2026-10-17 09:30:00", doc.Timestamp)

	require.Len(t, doc.Tests, 4)
	assert.Equal(t, jsonCase{Test: "passes", Status: "PASS", DurationUS: 1}, doc.Tests[0])
	assert.Equal(t, "FAIL", doc.Tests[1].Status)
	assert.Equal(t, "Expected...", doc.Tests[1].Message)
	assert.Equal(t, "SKIP", doc.Tests[2].Status)

	assert.Equal(t, []jsonError{{Test: "extraa", Message: "Unexpected panic: boom"}}, doc.Errors)
	assert.Equal(t, jsonSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1, TotalMallocs: 2, TotalFrees: 1}, doc.Summary)
}

func TestJSON_Canonical(t *testing.T) {
	j := NewJSON(Options{Canonical: true, RunID: "run-1"})
	out := runSuite(t, j.Hooks(), alloc.New())

	assert.True(t, strings.HasPrefix(out, `{"run_id":"run-1","summary":{"failed":1,"passed":1,"skipped":1,"total":3,"total_frees":1,"total_mallocs":2},"test_set":"report","tests":[`), out)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
