package sigtest

import (
	"io"
	"os"
)

// ConfigFunc produces a suite's output stream. It runs once, synchronously,
// when the suite is opened. A nil writer or an error selects standard output.
type ConfigFunc func() (io.Writer, error)

// CleanupFunc runs once after a suite finishes.
type CleanupFunc func()

// Counters holds per-suite or per-run case tallies.
type Counters struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func (c *Counters) add(s State) {
	c.Total++
	switch s {
	case Pass:
		c.Passed++
	case Fail:
		c.Failed++
	case Skip:
		c.Skipped++
	}
}

// Suite is a named, ordered group of cases sharing a stream and lifecycle callbacks.
type Suite struct {
	Name     string
	Setup    CaseOp
	Teardown CaseOp
	Cleanup  CleanupFunc

	cases    []*Case
	out      io.Writer
	ownsOut  bool
	hooks    *HookTable
	counters Counters
	logger   *Logger
}

func newSuite(name string, cleanup CleanupFunc) *Suite {
	return &Suite{Name: name, Cleanup: cleanup}
}

// Cases returns the cases in registration order.
func (s *Suite) Cases() []*Case { return s.cases }

// Len returns the number of registered cases.
func (s *Suite) Len() int { return len(s.cases) }

// Out returns the suite's output stream. A suite without its own stream
// writes to the run's standard output (see WithStdout): Out reports that
// writer once the suite has run, and os.Stdout before.
func (s *Suite) Out() io.Writer {
	switch {
	case s.out != nil:
		return s.out
	case s.logger != nil:
		return s.logger.Writer()
	}
	return os.Stdout
}

// Counters returns the tallies of the most recent run.
func (s *Suite) Counters() Counters { return s.counters }

// Hooks returns the table attached to this suite, or nil.
func (s *Suite) Hooks() *HookTable { return s.hooks }

// UseHooks attaches a table to this suite. A table passed to Run still wins.
func (s *Suite) UseHooks(t *HookTable) { s.hooks = t }

// Logger returns the suite logger. It is valid once the suite has started running.
func (s *Suite) Logger() *Logger { return s.logger }

func (s *Suite) append(c *Case) {
	c.suite = s
	s.cases = append(s.cases, c)
}
