// Package sigtest is an in-process unit-testing library.
//
// Cases are registered into named suites, then executed by a runner that
// steps through an explicit state machine and reports every phase to a hook
// table. Assertions record a result and abort the current case body by
// unwinding back to the runner, which always resumes at the next phase.
//
// # Registration
//
// A Registry holds suites in registration order. Opening a suite makes it
// the target of subsequent registrations; a case added before any suite is
// opened lands in an implicit suite named "default".
//
//	reg := sigtest.NewRegistry()
//	reg.OpenSuite("math", nil, nil)
//	reg.AddCase("adds", func(t *sigtest.T) {
//		t.AreEqual(4, 2+2, sigtest.Int, "")
//	}, sigtest.KindPlain)
//	os.Exit(reg.Run(nil))
//
// # Hooks
//
// Every phase fires an optional callback. For each suite the runner picks
// one table: the table passed to Run, else the suite's own table, else the
// most recently registered table. Callbacks the chosen table leaves nil fall
// back to the console defaults, never to another table.
//
// # Allocations
//
// The runner snapshots the allocator counters of package alloc around each
// suite and forwards allocation events to the active table's OnAlloc and
// OnFree callbacks while the suite runs.
package sigtest

// Version is the library version.
const Version = "1.0.0"
