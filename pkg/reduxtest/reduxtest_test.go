package reduxtest

import (
	"fmt"
	"testing"

	redux "github.com/wjohnso-insight/scc-redux"
)

func TestActionBuildsMaps(t *testing.T) {
	action := Action("todos/add", "text", "ship it", "priority", 2)
	if action["type"] != "todos/add" {
		t.Errorf("expected the type set, got %v", action["type"])
	}
	if action["text"] != "ship it" || action["priority"] != 2 {
		t.Errorf("expected the payload set, got %v", action)
	}

	// Odd trailing keys are dropped, not paired with garbage
	bare := Action("ping", "dangling")
	if len(bare) != 1 {
		t.Errorf("expected only the type key, got %v", bare)
	}
}

func TestRecorderCapturesStates(t *testing.T) {
	store := New(t, CounterReducer())
	rec := Record(t, store)

	if _, ok := rec.Last(); ok {
		t.Error("expected an empty recorder before any dispatch")
	}

	MustDispatch(t, store, Action("counter/increment"))
	MustDispatch(t, store, Action("counter/add", "by", 4))
	MustDispatch(t, store, Action("counter/decrement"))

	if fmt.Sprint(rec.States()) != "[1 5 4]" {
		t.Errorf("expected recorded states [1 5 4], got %v", rec.States())
	}
	if rec.Len() != 3 {
		t.Errorf("expected 3 recorded states, got %d", rec.Len())
	}
	if last, ok := rec.Last(); !ok || last != 4 {
		t.Errorf("expected last state 4, got %v, %v", last, ok)
	}

	ExpectState(t, store, 4)
}

func TestLogActionsRecordsDispatchTraffic(t *testing.T) {
	enhancer, actionLog := LogActions[int]()
	store := New(t, CounterReducer(), redux.WithEnhancer(enhancer))

	// The bootstrap dispatch predates the wrapper
	if actionLog.Len() != 0 {
		t.Fatalf("expected an empty log after construction, got %d", actionLog.Len())
	}

	MustDispatch(t, store, Action("counter/increment"))
	MustDispatch(t, store, Action("counter/add", "by", 2))

	if actionLog.Len() != 2 {
		t.Fatalf("expected 2 logged actions, got %d", actionLog.Len())
	}
	if fmt.Sprint(actionLog.Types()) != "[counter/increment counter/add]" {
		t.Errorf("expected logged types in dispatch order, got %v", actionLog.Types())
	}

	// The wrapper changes nothing about how the store computes state
	ExpectState(t, store, 3)
}

func TestReduceStepsDrivesReducerDirectly(t *testing.T) {
	final := ReduceSteps(t, CounterReducer(), 10,
		Action("counter/increment"),
		Action("counter/increment"),
		Action("unknown"),
		Action("counter/add", "by", 3),
	)
	if final != 15 {
		t.Errorf("expected final state 15, got %d", final)
	}
}

func TestCounterReducerIgnoresMalformedPayload(t *testing.T) {
	state := ReduceSteps(t, CounterReducer(), 1, Action("counter/add", "by", "not-an-int"))
	if state != 1 {
		t.Errorf("expected a malformed payload ignored, got %d", state)
	}
}
