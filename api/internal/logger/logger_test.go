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

func TestZapWrapper_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapAdapter(zap.New(core)).With(map[string]interface{}{"invocation": "abc"})

	l.Debug("hidden", nil)
	l.Info("stage done", map[string]interface{}{"stage": "describe"})
	l.WithError(errors.New("render down")).Warn("render skipped", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "stage done", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "abc", ctx["invocation"])
	assert.Equal(t, "describe", ctx["stage"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "render down", entries[1].ContextMap()["error"])
}

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "console").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "json").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("", "json").Core().Enabled(zapcore.InfoLevel))
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	l.Error("nothing", map[string]interface{}{"k": 1})
	assert.NotNil(t, l.With(nil))
}
