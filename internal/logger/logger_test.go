package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	SetFormat(FormatAuto)
	SetOutput(os.Stderr)
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetFormat(FormatJSON)
	SetOutput(&buf)
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	buf := capture(t)
	SetVerbose(true)

	Debug("test message %s", "arg")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "test message arg", entries[0]["message"])
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	buf := capture(t)
	SetVerbose(false)

	Debug("test message")
	Section("Parse")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	defer reset()

	buf := capture(t)
	SetVerbose(true)

	Section("Reconcile")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Reconcile", entries[0]["section"])
	assert.Equal(t, "=== Reconcile ===", entries[0]["message"])
}

func TestInfoWarnError_AlwaysEmitted(t *testing.T) {
	defer reset()

	buf := capture(t)

	Info("created %d", 2)
	Warn("lookup failed")
	Error(errors.New("boom"), "write %s", "a.md")

	entries := lines(t, buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "created 2", entries[0]["message"])
	assert.Equal(t, "warn", entries[1]["level"])
	assert.Equal(t, "error", entries[2]["level"])
	assert.Equal(t, "boom", entries[2]["error"])
	assert.Equal(t, "write a.md", entries[2]["message"])
}

func TestNamed(t *testing.T) {
	defer reset()

	buf := capture(t)

	l := Named("watcher")
	l.Info().Msg("started")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "watcher", entries[0]["component"])
}

func TestSetFormat_Console(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetFormat(FormatConsole)
	SetOutput(&buf)

	Info("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestSetFormat_UnknownFallsBack(t *testing.T) {
	defer reset()

	SetFormat(Format("xml"))

	mu.RLock()
	defer mu.RUnlock()
	assert.Equal(t, FormatAuto, format)
}
