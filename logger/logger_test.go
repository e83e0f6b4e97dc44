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

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	SetLogger(nil)
	assert.NotPanics(t, func() {
		Info("nothing configured", String("k", "v"))
		Sync()
	})
	assert.NotNil(t, L())
}

func TestHelpersWriteToGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Warn("decode failed", String("src", "blob:1"), ErrorField(errors.New("bad header")), Int("attempt", 2))
	Debug("tick")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "blob:1", fields["src"])
	assert.Equal(t, "bad header", fields["error"])
	assert.EqualValues(t, 2, fields["attempt"])
}

func TestLevelMapping(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, DebugLevel.zapLevel())
	assert.Equal(t, zapcore.ErrorLevel, ErrorLevel.zapLevel())
	assert.Equal(t, zapcore.InfoLevel, LogLevel("verbose").zapLevel())
}

func TestBuildWritesRotatedFile(t *testing.T) {
	l, err := build(Config{Level: InfoLevel, OutputPath: t.TempDir() + "/nested/app.log", MaxSize: 1})
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()
}
