package middleware

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggerMiddleware_LogsDispatches(t *testing.T) {
	var buf bytes.Buffer
	store := newCounterStore(t, Logger[int](WithLogger(testLogger(&buf))))

	if _, err := store.Dispatch(increment()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "action=counter/increment") {
		t.Errorf("expected the action type in the log, got %q", out)
	}
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("expected the default debug level, got %q", out)
	}
	if !strings.Contains(out, "duration=") {
		t.Errorf("expected a duration field, got %q", out)
	}
}

func TestLoggerMiddleware_LogsFailuresAtError(t *testing.T) {
	var buf bytes.Buffer
	store := newCounterStore(t, Logger[int](WithLogger(testLogger(&buf))))

	if _, err := store.Dispatch(map[string]any{"type": "explode"}); err == nil {
		t.Fatal("expected the reducer error to propagate")
	}

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("expected failures logged at error, got %q", out)
	}
	if !strings.Contains(out, "dispatch failed") {
		t.Errorf("expected the failure message, got %q", out)
	}
	if !strings.Contains(out, "reducer rejected the action") {
		t.Errorf("expected the reducer error in the log, got %q", out)
	}
}

func TestLoggerMiddleware_CustomLevelAndState(t *testing.T) {
	var buf bytes.Buffer
	store := newCounterStore(t, Logger[int](
		WithLogger(testLogger(&buf)),
		WithLogLevel(slog.LevelInfo),
		WithStateLogging(true),
	))

	if _, err := store.Dispatch(increment()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("expected the configured level, got %q", out)
	}
	if !strings.Contains(out, "state=1") {
		t.Errorf("expected the settled state in the log, got %q", out)
	}
}
