package sigtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunnerState_String(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "FUZZ_EXECUTE", StateFuzzExecute.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", RunnerState(200).String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "PASS", Pass.String())
	assert.Equal(t, "FAIL", Fail.String())
	assert.Equal(t, "SKIP", Skip.String())
	assert.Equal(t, "expect-throw", KindExpectThrow.String())
	assert.Equal(t, "ptr", Ptr.String())
	assert.Equal(t, "WARNING", LevelWarning.String())
}
