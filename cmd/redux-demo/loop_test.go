package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func newTestLoop(t *testing.T) *storeLoop {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := newStoreLoop(logger, 8)
	go loop.Run()
	t.Cleanup(loop.Stop)
	return loop
}

func TestLoopRunsClosures(t *testing.T) {
	loop := newTestLoop(t)

	// Do blocks until the closure has run, so no synchronization is
	// needed to read total afterwards.
	total := 0
	for i := 1; i <= 3; i++ {
		n := i
		if err := loop.Do(func() { total += n }); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}

	if total != 6 {
		t.Errorf("expected total 6, got %d", total)
	}
}

func TestLoopSurvivesPanic(t *testing.T) {
	loop := newTestLoop(t)

	if err := loop.Do(func() { panic("boom") }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	ran := false
	if err := loop.Do(func() { ran = true }); err != nil {
		t.Fatalf("Do after panic failed: %v", err)
	}
	if !ran {
		t.Error("expected loop to keep running after a panic")
	}
}

func TestLoopDoAfterStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := newStoreLoop(logger, 8)
	loop.Stop()

	// Nothing serves the queue once the loop is stopped, so Do must fail
	// instead of blocking.
	if err := loop.Do(func() {}); !errors.Is(err, errLoopStopped) {
		t.Errorf("expected errLoopStopped, got %v", err)
	}
}
