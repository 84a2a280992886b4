package sigtest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest/fuzz"
)

// DefaultSuiteName names the suite created for cases added before any suite is opened.
const DefaultSuiteName = "default"

var (
	exit   = os.Exit
	stderr io.Writer = os.Stderr
)

// fatalf reports a registration error that leaves nothing sensible to run.
func fatalf(format string, args ...any) {
	fmt.Fprintf(stderr, "sigtest: fatal: "+format+"\n", args...)
	exit(1)
}

// Registry holds suites in registration order and a named hook registry.
// Registration is expected to finish before Run; it is not safe to
// register while a run is in progress.
type Registry struct {
	mu      sync.Mutex
	suites  []*Suite
	current *Suite
	hooks   *HookRegistry

	closeOnce sync.Once
	closeErr  error
}

// NewRegistry returns an empty registry with a seeded hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: NewHookRegistry()}
}

// OpenSuite creates a suite and makes it the target of later registrations.
// config, if not nil, runs once now to produce the suite stream.
func (r *Registry) OpenSuite(name string, config ConfigFunc, cleanup CleanupFunc) *Suite {
	if name == "" {
		fatalf("suite name cannot be empty")
		return nil
	}

	s := newSuite(name, cleanup)
	if config != nil {
		w, err := config()
		switch {
		case err != nil:
			logging.Warn("suite config failed, using stdout", "suite", name, "error", err)
		case isNilWriter(w):
			logging.Warn("suite config returned no stream, using stdout", "suite", name)
		default:
			s.out = w
			s.ownsOut = !isStdStream(w)
		}
	}

	r.mu.Lock()
	r.suites = append(r.suites, s)
	r.current = s
	r.mu.Unlock()

	logging.Debug("suite opened", "suite", name)
	return s
}

// isNilWriter reports whether w is nil or an interface wrapping a nil value.
func isNilWriter(w io.Writer) bool {
	if w == nil {
		return true
	}
	rv := reflect.ValueOf(w)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isStdStream(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}

// active returns the open suite, creating the implicit default suite if needed.
func (r *Registry) active() *Suite {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()
	if cur != nil {
		return cur
	}
	return r.OpenSuite(DefaultSuiteName, nil, nil)
}

// AddCase appends a plain case to the open suite.
func (r *Registry) AddCase(name string, body Func, kind Kind) *Case {
	if name == "" {
		fatalf("case name cannot be empty")
		return nil
	}
	if body == nil {
		fatalf("case %q has no body", name)
		return nil
	}
	c := &Case{
		Name:        name,
		body:        body,
		ExpectFail:  kind == KindExpectFail,
		ExpectThrow: kind == KindExpectThrow,
	}
	r.active().append(c)
	return c
}

// AddFuzzCase appends a case that runs body once per element of ds.
func (r *Registry) AddFuzzCase(name string, body FuzzFunc, ds fuzz.Dataset) *Case {
	if name == "" {
		fatalf("case name cannot be empty")
		return nil
	}
	if body == nil {
		fatalf("fuzz case %q has no body", name)
		return nil
	}
	if ds == nil {
		fatalf("fuzz case %q has no dataset", name)
		return nil
	}
	c := &Case{Name: name, fuzzBody: body, dataset: ds}
	r.active().append(c)
	return c
}

// SetSetup binds fn to run before every case of the open suite.
func (r *Registry) SetSetup(fn CaseOp) { r.active().Setup = fn }

// SetTeardown binds fn to run after every case of the open suite.
func (r *Registry) SetTeardown(fn CaseOp) { r.active().Teardown = fn }

// RegisterHooks makes t the most recent table and, if the open suite has no
// table yet, attaches it there too.
func (r *Registry) RegisterHooks(t *HookTable) error {
	if err := r.hooks.Register(t); err != nil {
		return err
	}
	r.mu.Lock()
	if r.current != nil && r.current.hooks == nil {
		r.current.hooks = t
	}
	r.mu.Unlock()
	logging.Debug("hooks registered", "table", t.Name)
	return nil
}

// HookRegistry returns the registry's named hook tables.
func (r *Registry) HookRegistry() *HookRegistry { return r.hooks }

// Suites returns the suites in registration order.
func (r *Registry) Suites() []*Suite {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Suite, len(r.suites))
	copy(out, r.suites)
	return out
}

// Suite returns the suite registered under name.
func (r *Registry) Suite(name string) (*Suite, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.suites {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Run executes every registered suite. See Run for the meaning of table.
func (r *Registry) Run(table *HookTable, opts ...Option) int {
	opts = append([]Option{WithHookRegistry(r.hooks)}, opts...)
	return Run(r.Suites(), table, opts...)
}

// Close releases suite streams produced by config functions and forgets
// every suite. Only the first call has any effect.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		var errs []error
		for _, s := range r.suites {
			if !s.ownsOut {
				continue
			}
			if c, ok := s.out.(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close stream of suite %q: %w", s.Name, err))
				}
			}
		}
		r.suites = nil
		r.current = nil
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

// Default is the process-wide registry behind the package-level functions.
var Default = NewRegistry()

// OpenSuite opens a suite in Default.
func OpenSuite(name string, config ConfigFunc, cleanup CleanupFunc) *Suite {
	return Default.OpenSuite(name, config, cleanup)
}

// AddCase adds a plain case to Default.
func AddCase(name string, body Func, kind Kind) *Case { return Default.AddCase(name, body, kind) }

// AddFuzzCase adds a fuzz case to Default.
func AddFuzzCase(name string, body FuzzFunc, ds fuzz.Dataset) *Case {
	return Default.AddFuzzCase(name, body, ds)
}

// SetSetup binds a setup function in Default.
func SetSetup(fn CaseOp) { Default.SetSetup(fn) }

// SetTeardown binds a teardown function in Default.
func SetTeardown(fn CaseOp) { Default.SetTeardown(fn) }

// RegisterHooks registers a hook table in Default.
func RegisterHooks(t *HookTable) error { return Default.RegisterHooks(t) }
