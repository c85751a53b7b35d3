// Package reduxtest provides helpers for testing reducers and stores.
//
// The helpers fail the surrounding test instead of returning errors, so
// store plumbing stays out of test bodies:
//
//	store := reduxtest.New(t, reducer)
//	rec := reduxtest.Record(t, store)
//	reduxtest.MustDispatch(t, store, reduxtest.Action("counter/increment"))
//	reduxtest.ExpectState(t, store, 1)
package reduxtest

import (
	"testing"

	redux "github.com/wjohnso-insight/scc-redux"
)

// New builds a store and fails the test on a construction error.
//
// Example:
//
//	store := reduxtest.New(t, counter, redux.WithPreloadedState(10))
func New[S any](t *testing.T, reducer redux.Reducer[S], opts ...redux.Option[S]) redux.Store[S] {
	t.Helper()
	store, err := redux.New(reducer, opts...)
	if err != nil {
		t.Fatalf("redux.New: %v", err)
	}
	return store
}

// Action builds an action map from a type and alternating key/value
// pairs.
//
// Example:
//
//	reduxtest.Action("todos/add", "text", "ship it")
func Action(typ string, kv ...any) map[string]any {
	action := map[string]any{"type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			action[key] = kv[i+1]
		}
	}
	return action
}

// MustDispatch dispatches and fails the test on error, returning
// whatever the dispatch returned.
func MustDispatch[S any](t *testing.T, store redux.Store[S], action any) any {
	t.Helper()
	result, err := store.Dispatch(action)
	if err != nil {
		t.Fatalf("Dispatch(%v): %v", action, err)
	}
	return result
}

// MustState reads the current state and fails the test on error.
func MustState[S any](t *testing.T, store redux.Store[S]) S {
	t.Helper()
	state, err := store.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	return state
}

// ExpectState asserts the current state equals want.
//
// Example:
//
//	reduxtest.ExpectState(t, store, 3)
func ExpectState[S comparable](t *testing.T, store redux.Store[S], want S) {
	t.Helper()
	got := MustState(t, store)
	if got != want {
		t.Errorf("expected state %v, got %v", want, got)
	}
}

// Recorder captures every state a store settles into while it is
// subscribed.
type Recorder[S any] struct {
	states []S
}

// Record subscribes a Recorder to the store for the remainder of the
// test; the subscription is removed in test cleanup. States dispatched
// before Record are not captured.
//
// Example:
//
//	rec := reduxtest.Record(t, store)
//	reduxtest.MustDispatch(t, store, reduxtest.Action("counter/increment"))
//	if rec.Len() != 1 { ... }
func Record[S any](t *testing.T, store redux.Store[S]) *Recorder[S] {
	t.Helper()
	rec := &Recorder[S]{}
	unsubscribe, err := store.Subscribe(func() {
		if state, err := store.GetState(); err == nil {
			rec.states = append(rec.states, state)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	t.Cleanup(func() { _ = unsubscribe() })
	return rec
}

// States returns the recorded states in dispatch order.
func (r *Recorder[S]) States() []S {
	return r.states
}

// Len returns the number of recorded states.
func (r *Recorder[S]) Len() int {
	return len(r.states)
}

// Last returns the most recent recorded state. The second result is
// false when nothing has been recorded.
func (r *Recorder[S]) Last() (S, bool) {
	if len(r.states) == 0 {
		var zero S
		return zero, false
	}
	return r.states[len(r.states)-1], true
}

// ActionLog collects the actions a wrapped store dispatches. Install one
// with LogActions.
type ActionLog struct {
	actions []any
}

// Actions returns the logged actions in dispatch order.
func (l *ActionLog) Actions() []any {
	return l.actions
}

// Len returns the number of logged actions.
func (l *ActionLog) Len() int {
	return len(l.actions)
}

// Types returns the string type of each logged action, in order. Actions
// without a string type come back as "".
func (l *ActionLog) Types() []string {
	types := make([]string, len(l.actions))
	for i, action := range l.actions {
		types[i], _ = redux.ActionType(action)
	}
	return types
}

// LogActions returns an enhancer that records every action entering
// Dispatch, and the log it fills. Rejected actions are recorded too; the
// log captures traffic, not outcomes. The bootstrap dispatch runs inside
// the base creator, before the wrapper exists, so it is never recorded.
//
// Example:
//
//	enhancer, log := reduxtest.LogActions[int]()
//	store := reduxtest.New(t, reducer, redux.WithEnhancer(enhancer))
//	reduxtest.MustDispatch(t, store, reduxtest.Action("counter/increment"))
//	// log.Len() == 1
func LogActions[S any]() (redux.Enhancer[S], *ActionLog) {
	log := &ActionLog{}
	enhancer := redux.Enhancer[S](func(next redux.StoreCreator[S]) redux.StoreCreator[S] {
		return func(reducer redux.Reducer[S], cfg redux.Config[S]) (redux.Store[S], error) {
			store, err := next(reducer, cfg)
			if err != nil {
				return nil, err
			}
			return redux.WithDispatcher(store, func(action any) (any, error) {
				log.actions = append(log.actions, action)
				return store.Dispatch(action)
			})
		}
	})
	return enhancer, log
}

// ReduceSteps drives a reducer directly through a sequence of actions,
// no store involved, and returns the final state. Any reducer error
// fails the test with the offending action.
//
// Example:
//
//	final := reduxtest.ReduceSteps(t, counter, 0,
//	    reduxtest.Action("counter/increment"),
//	    reduxtest.Action("counter/increment"),
//	)
func ReduceSteps[S any](t *testing.T, reducer redux.Reducer[S], initial S, actions ...any) S {
	t.Helper()
	state := initial
	for _, action := range actions {
		next, err := reducer(state, action)
		if err != nil {
			t.Fatalf("reducer(%v): %v", action, err)
		}
		state = next
	}
	return state
}

// CounterReducer returns a ready-made int reducer for tests and
// examples. It understands "counter/increment", "counter/decrement",
// and "counter/add" with an int "by" payload.
func CounterReducer() redux.Reducer[int] {
	return func(state int, action any) (int, error) {
		switch typ, _ := redux.ActionType(action); typ {
		case "counter/increment":
			return state + 1, nil
		case "counter/decrement":
			return state - 1, nil
		case "counter/add":
			if m, ok := action.(map[string]any); ok {
				if by, ok := m["by"].(int); ok {
					return state + by, nil
				}
			}
			return state, nil
		default:
			return state, nil
		}
	}
}
