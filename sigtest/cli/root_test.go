package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/alloc"
	"github.com/joshuapare/sigmatest/sigtest/fuzz"
)

func newRegistry() *sigtest.Registry {
	reg := sigtest.NewRegistry()
	reg.OpenSuite("math", nil, nil)
	reg.AddCase("adds", func(t *sigtest.T) { t.AreEqual(4, 2+2, sigtest.Int, "") }, sigtest.KindPlain)
	reg.AddCase("divides", func(t *sigtest.T) { t.AreEqual(4, 7/2, sigtest.Int, "") }, sigtest.KindPlain)
	reg.OpenSuite("bytes", nil, nil)
	reg.AddFuzzCase("in range", func(t *sigtest.T, v any) {
		_, ok := v.(int8)
		t.IsTrue(ok, "")
	}, fuzz.Values(fuzz.Byte))
	reg.AddCase("negative", func(t *sigtest.T) { t.Fail("") }, sigtest.KindExpectFail)
	return reg
}

func execute(t *testing.T, reg *sigtest.Registry, args ...string) (*App, string, error) {
	t.Helper()
	a := New(reg)
	var out bytes.Buffer
	a.Command().SetOut(&out)
	a.Command().SetErr(&out)
	a.Command().SetArgs(args)
	err := a.Command().Execute()
	return a, out.String(), err
}

func TestRun_Console(t *testing.T) {
	a, out, err := execute(t, newRegistry())
	require.NoError(t, err)
	assert.Equal(t, 1, a.Code())
	assert.Contains(t, out, "[1] math")
	assert.Contains(t, out, "[2] bytes")
	assert.Contains(t, out, "Tests run: 4, Passed: 3, Failed: 1, Skipped: 0")
}

func TestRun_SuiteFilter(t *testing.T) {
	a, out, err := execute(t, newRegistry(), "--suite", "bytes")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Code())
	assert.NotContains(t, out, "math")
	assert.Contains(t, out, "Total test sets registered: 1")

	_, _, err = execute(t, newRegistry(), "-s", "nope")
	assert.ErrorContains(t, err, `unknown suite "nope"`)
}

func TestRun_JSONFormat(t *testing.T) {
	a, out, err := execute(t, newRegistry(), "--format", "json", "--suite", "math")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Code())
	assert.Contains(t, out, `"test_set": "math"`)
	assert.Contains(t, out, `"status": "FAIL"`)
	assert.NotContains(t, out, "Running:")
}

func TestRun_BadFormat(t *testing.T) {
	_, _, err := execute(t, newRegistry(), "--format", "tap")
	assert.Error(t, err)
}

func TestRun_MemCheck(t *testing.T) {
	reg := sigtest.NewRegistry()
	reg.OpenSuite("leaks", nil, nil)
	reg.AddCase("keeps a block", func(t *sigtest.T) {
		_, err := alloc.Malloc(48)
		t.IsNull(err, "")
	}, sigtest.KindPlain)

	a, out, err := execute(t, reg, "--memcheck", "--histogram")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Code())
	require.NotNil(t, a.Tracker)
	assert.Contains(t, out, "MemCheck (v0.0.1 Experimental) - enabled for 'leaks'")
	assert.Contains(t, out, "MemCheck: 1 leaked block(s) (48 bytes)")
	assert.Contains(t, out, "  32-63B   : 1")

	_, _, err = execute(t, sigtest.NewRegistry(), "--memcheck", "--format", "junit")
	assert.ErrorIs(t, err, errMemCheckFormat)
}

func TestRun_ConfigFileWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: junit\n"), 0o644))

	_, out, err := execute(t, newRegistry(), "--config", path, "--suite", "math")
	require.NoError(t, err)
	assert.Contains(t, out, "<testsuites")

	_, out, err = execute(t, newRegistry(), "--config", path, "--format", "console", "--suite", "math")
	require.NoError(t, err)
	assert.NotContains(t, out, "<testsuites")
	assert.Contains(t, out, "[1] math")
}

func TestVersionCommand(t *testing.T) {
	_, out, err := execute(t, newRegistry(), "version")
	require.NoError(t, err)
	assert.Equal(t, "sigtest "+sigtest.Version+"\n  commit: none\n  built: unknown\n", out)
}

func TestListCommand(t *testing.T) {
	_, out, err := execute(t, newRegistry(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "math (2)\n")
	assert.Contains(t, out, "bytes (2)\n")
	assert.Regexp(t, `in range\s+fuzz\[5\]`, out)
	assert.Regexp(t, `negative\s+expect-fail`, out)
}
