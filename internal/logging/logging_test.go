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

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMultiHandler_FansOut(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("pr", 7)

	logger.Debug("expanding")
	logger.Warn("capture degraded")

	assert.Contains(t, debugBuf.String(), "expanding")
	assert.Contains(t, debugBuf.String(), "capture degraded")
	assert.NotContains(t, warnBuf.String(), "expanding")
	assert.Contains(t, warnBuf.String(), "pr=7")
}

func TestSetup_WritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "prshot.log")

	logger, closer, err := Setup("info", logFile)
	require.NoError(t, err)
	logger.Info("saved screenshot", "pr", 42)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved screenshot")
	assert.Contains(t, string(data), "pr=42")
}
