package app

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/logtail"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewLoggerVerboseOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "error", false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, "error", true).Debug("shown", "job_id", "j1")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "job_id=j1")
}

func TestLogFileIsReadableByTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "larder.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)

	NewLogger(f, "info", false).Info("extraction submitted", "job_id", "job-1")
	require.NoError(t, f.Close())

	lines, err := logtail.Read(path, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	entry := logtail.Parse(lines[0])
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "extraction submitted", entry.Message)
}
