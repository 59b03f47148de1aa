package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("INGEST", "chunks stored", map[string]interface{}{"count": 3, "session_id": "s1"})
	l.Warn("INGEST", "no details", nil)
	l.Error("LLM", "generation failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "chunks stored", entries[0].Message)
	assert.Equal(t, "INGEST", first["module"])
	assert.Equal(t, "s1", first["session_id"])
	assert.Equal(t, map[string]interface{}{"count": 3}, first["details"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	last := entries[2].ContextMap()
	assert.Equal(t, "boom", last["error"])
	assert.Equal(t, map[string]interface{}{}, last["details"])
}

func TestZapLoggerKeepsNonErrorValuesUnderDetails(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))

	l.Debug("INGEST", "filtered out", nil)
	l.Error("INGEST", "bad input", map[string]interface{}{"error": "not an error value"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]interface{}{"error": "not an error value"}, entries[0].ContextMap()["details"])
}

func TestNopLoggerIsSafe(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Debug("X", "y", nil)
		_ = l.Sync()
	})
}
