package logging

import (
	"bytes"
	"encoding/json"
	log "log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, lvl)

	lvl, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, log.LevelInfo, lvl)
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "delta.log")

	lg, closer := New(Options{Level: log.LevelInfo, Console: &console, File: path})
	lg.With("component", "test").Info("Heard", "text", "delta hello")
	lg.Debug("hidden")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Heard")
	assert.Contains(t, console.String(), "delta hello")
	assert.NotContains(t, console.String(), "hidden")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "Heard", rec["msg"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, "delta hello", rec["text"])
}

func TestNewConsoleOnly(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	lg, closer := New(Options{Level: log.LevelDebug, Console: &console})
	lg.Debug("visible")
	assert.NoError(t, closer.Close())
	assert.Contains(t, console.String(), "visible")
}
