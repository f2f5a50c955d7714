package runtime

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := levelFromEnv(); got != zapcore.DebugLevel {
		t.Fatalf("expected debug, got %s", got)
	}

	t.Setenv("LOG_LEVEL", "loud")
	if got := levelFromEnv(); got != zapcore.InfoLevel {
		t.Fatalf("expected info fallback, got %s", got)
	}
}
