package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("quiet by default", func(t *testing.T) {
		logger, err := New(false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("info should be disabled without verbose")
		}
		if !logger.Core().Enabled(zapcore.WarnLevel) {
			t.Error("warn should be enabled")
		}
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		logger, err := New(true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug should be enabled with verbose")
		}
	})
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
}
