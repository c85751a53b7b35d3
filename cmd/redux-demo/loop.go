package main

import (
	"errors"
	"log/slog"
	"runtime/debug"
)

// errLoopStopped is returned by Do once the loop has shut down.
var errLoopStopped = errors.New("store loop stopped")

// storeLoop confines store access to a single goroutine. Stores are not
// safe for concurrent use, so HTTP handlers and benchmark producers never
// touch the store directly; they queue closures through Do and the loop
// goroutine runs them one at a time.
type storeLoop struct {
	ops    chan func()
	done   chan struct{}
	logger *slog.Logger
}

func newStoreLoop(logger *slog.Logger, depth int) *storeLoop {
	return &storeLoop{
		ops:    make(chan func(), depth),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run processes queued closures until Stop is called.
func (l *storeLoop) Run() {
	for {
		select {
		case fn := <-l.ops:
			l.execute(fn)

		case <-l.done:
			return
		}
	}
}

// execute runs a queued closure with panic recovery.
func (l *storeLoop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("store op panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	fn()
}

// Stop shuts the loop down. Closures still queued are dropped and any
// blocked Do calls return errLoopStopped.
func (l *storeLoop) Stop() {
	close(l.done)
}

// Do runs fn on the loop goroutine and blocks until it returns.
func (l *storeLoop) Do(fn func()) error {
	ran := make(chan struct{})

	select {
	case l.ops <- func() {
		defer close(ran)
		fn()
	}:
	case <-l.done:
		return errLoopStopped
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		return errLoopStopped
	}
}
