package sigtest

// RunnerState is a phase of the runner state machine.
type RunnerState uint8

const (
	StateInit RunnerState = iota
	StateSetLoop
	StateSetInit
	StateBeforeSet
	StateCaseLoop
	StateCaseInit
	StateBeforeTest
	StateSetup
	StateStart
	StateExecute
	StateFuzzExecute
	StateEnd
	StateTeardown
	StateAfterTest
	StateResult
	StateAfterSet
	StateSummary
	StateDone
)

var stateNames = [...]string{
	StateInit:        "INIT",
	StateSetLoop:     "SET_LOOP",
	StateSetInit:     "SET_INIT",
	StateBeforeSet:   "BEFORE_SET",
	StateCaseLoop:    "CASE_LOOP",
	StateCaseInit:    "CASE_INIT",
	StateBeforeTest:  "BEFORE_TEST",
	StateSetup:       "SETUP",
	StateStart:       "START",
	StateExecute:     "EXECUTE",
	StateFuzzExecute: "FUZZ_EXECUTE",
	StateEnd:         "END",
	StateTeardown:    "TEARDOWN",
	StateAfterTest:   "AFTER_TEST",
	StateResult:      "RESULT",
	StateAfterSet:    "AFTER_SET",
	StateSummary:     "SUMMARY",
	StateDone:        "DONE",
}

// String returns the state name.
func (s RunnerState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}
