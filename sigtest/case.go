package sigtest

import "github.com/joshuapare/sigmatest/sigtest/fuzz"

// State is the outcome of a case.
type State uint8

const (
	Pass State = iota
	Fail
	Skip
)

// String returns PASS, FAIL or SKIP.
func (s State) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Skip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Kind selects how a plain case's outcome is interpreted.
type Kind uint8

const (
	KindPlain       Kind = iota // outcome taken as-is
	KindExpectFail              // a FAIL is the expected outcome
	KindExpectThrow             // an explicit throw is the expected outcome
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindExpectFail:
		return "expect-fail"
	case KindExpectThrow:
		return "expect-throw"
	default:
		return "unknown"
	}
}

// Result is the recorded outcome of a case.
type Result struct {
	State   State
	Message string
}

// Func is a plain case body.
type Func func(t *T)

// FuzzFunc is a fuzz case body, called once per dataset element.
type FuzzFunc func(t *T, value any)

// CaseOp is a per-case setup or teardown function.
type CaseOp func()

// Case is one registered unit of test logic.
type Case struct {
	Name        string
	ExpectFail  bool
	ExpectThrow bool

	// Result is mutated only while the case is current.
	Result Result

	body     Func
	fuzzBody FuzzFunc
	dataset  fuzz.Dataset
	suite    *Suite
}

// IsFuzz reports whether the case replays a dataset.
func (c *Case) IsFuzz() bool { return c.fuzzBody != nil }

// Dataset returns the fuzz dataset, or nil for plain cases.
func (c *Case) Dataset() fuzz.Dataset { return c.dataset }

// Kind returns how the case's outcome is interpreted.
func (c *Case) Kind() Kind {
	switch {
	case c.ExpectFail:
		return KindExpectFail
	case c.ExpectThrow:
		return KindExpectThrow
	}
	return KindPlain
}

// Suite returns the owning suite.
func (c *Case) Suite() *Suite { return c.suite }

func (c *Case) record(state State, msg string) {
	c.Result = Result{State: state, Message: msg}
}
