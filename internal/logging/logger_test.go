package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledDiscards(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	require.NoError(t, Init(Options{Enabled: false}))
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInit_WriterAndLevel(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelWarn}))

	Info("hidden")
	Warn("shown", "suite", "math")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "suite=math")
}

func TestInit_JSONHandler(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &buf, JSON: true, Level: slog.LevelDebug}))
	Debug("state", "to", "SET_LOOP")

	assert.Contains(t, buf.String(), `"to":"SET_LOOP"`)
}

func TestInit_LogDir(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	Error("boom")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), logPrefix)
}

func TestInit_ClosesPreviousLogFile(t *testing.T) {
	t.Cleanup(func() { _ = Close() })

	require.NoError(t, Init(Options{Enabled: true, LogDir: t.TempDir()}))
	first := logFile
	require.NotNil(t, first)

	require.NoError(t, Init(Options{Enabled: true, LogDir: t.TempDir()}))
	_, err := first.WriteString("late\n")
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NotSame(t, first, logFile)

	require.NoError(t, Close())
	assert.Nil(t, logFile)
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = ParseLevel("nonsense")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, lvl)
}
