package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg, err := Config{}.Normalize(ModeCLI)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Level)
	require.Equal(t, string(FormatText), cfg.Format)
	require.Equal(t, string(SinkStderr), cfg.Sink)
}

func TestTUINeverLogsToStderr(t *testing.T) {
	cfg, err := Config{Sink: "stderr"}.Normalize(ModeTUI)
	require.NoError(t, err)
	require.Equal(t, string(SinkFile), cfg.Sink)
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	_, err := Config{Level: "loud"}.Normalize(ModeCLI)
	require.ErrorContains(t, err, "log.level")
	_, err = Config{Sink: "syslog"}.Normalize(ModeCLI)
	require.ErrorContains(t, err, "log.sink")
}

func TestFileSinkWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "panel.log")
	cfg, err := Config{Sink: "file", File: path, Format: "json"}.Normalize(ModeTUI)
	require.NoError(t, err)
	logger, closeFn, err := New(cfg)
	require.NoError(t, err)
	logger.Info("bound", "model", "r3/mag/crq1")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"model":"r3/mag/crq1"`)
}
