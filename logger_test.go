package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerFallbackIsShared(t *testing.T) {
	prev := globalLogger.Load()
	globalLogger.Store(nil)
	t.Cleanup(func() { globalLogger.Store(prev) })

	first := GetLogger()
	require.NotNil(t, first)
	assert.Same(t, first, GetLogger())
	assert.Same(t, first, globalLogger.Load())
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	l.Info("hidden")
	l.Warn("shown")
	require.NoError(t, l.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestConfigPathLoggedAtDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	logs := observeLogs(t, zapcore.InfoLevel)
	_, err := NewConfig(path)
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("loading config").Len(), "quiet at info")

	logs = observeLogs(t, zapcore.DebugLevel)
	_, err = NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("loading config").Len())
}
