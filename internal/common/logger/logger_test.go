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

func TestZapAdapter_WithFieldsCarriesContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "controller"})

	log.Info("submission started", map[string]interface{}{"attempt": 2})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "submission started", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "controller", ctx["component"])
	assert.EqualValues(t, 2, ctx["attempt"])
}

func TestZapAdapter_ErrorValuesAreNamedErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.Warn("scoring failed", map[string]interface{}{"cause": errors.New("connection refused")})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["cause"])
}

func TestZapAdapter_WithError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithError(errors.New("boom"))

	log.Error("failed", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_LevelIsApplied(t *testing.T) {
	l := New("warn", "json")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
