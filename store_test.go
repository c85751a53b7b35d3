package redux

import (
	"errors"
	"fmt"
	"testing"
)

// counter is the workhorse reducer for store tests.
func counter(state int, action any) (int, error) {
	switch t, _ := ActionType(action); t {
	case "counter/increment":
		return state + 1, nil
	case "counter/decrement":
		return state - 1, nil
	default:
		return state, nil
	}
}

func increment() map[string]any {
	return map[string]any{"type": "counter/increment"}
}

func mustNew[S any](t *testing.T, reducer Reducer[S], opts ...Option[S]) Store[S] {
	t.Helper()
	store, err := New(reducer, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func mustDispatch[S any](t *testing.T, store Store[S], action any) {
	t.Helper()
	if _, err := store.Dispatch(action); err != nil {
		t.Fatalf("Dispatch(%v): %v", action, err)
	}
}

func stateOf[S any](t *testing.T, store Store[S]) S {
	t.Helper()
	state, err := store.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	return state
}

func TestStoreInitialState(t *testing.T) {
	store := mustNew(t, counter)

	// Zero value of the state type without preloaded state
	if got := stateOf(t, store); got != 0 {
		t.Errorf("expected initial state 0, got %d", got)
	}
}

func TestStorePreloadedState(t *testing.T) {
	store := mustNew(t, counter, WithPreloadedState(10))

	if got := stateOf(t, store); got != 10 {
		t.Errorf("expected preloaded state 10, got %d", got)
	}

	mustDispatch(t, store, increment())
	if got := stateOf(t, store); got != 11 {
		t.Errorf("expected state 11 after increment, got %d", got)
	}
}

func TestStoreInitDispatchesThroughReducer(t *testing.T) {
	var seen []string
	reducer := func(state int, action any) (int, error) {
		typ, _ := ActionType(action)
		seen = append(seen, typ)
		return state, nil
	}
	mustNew(t, reducer)

	if len(seen) != 1 {
		t.Fatalf("expected exactly one bootstrap dispatch, got %d", len(seen))
	}
	if seen[0] == "" {
		t.Error("bootstrap action should carry a type")
	}
}

func TestStoreInitFailurePropagates(t *testing.T) {
	boom := errors.New("no defaults")
	reducer := func(state int, action any) (int, error) {
		return 0, boom
	}
	if _, err := New(reducer); !errors.Is(err, boom) {
		t.Errorf("expected construction to surface the reducer error, got %v", err)
	}
}

func TestStoreNilReducer(t *testing.T) {
	if _, err := New[int](nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil reducer, got %v", err)
	}
}

func TestDispatchUpdatesStateAndReturnsAction(t *testing.T) {
	store := mustNew(t, counter)

	action := increment()
	returned, err := store.Dispatch(action)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, ok := returned.(map[string]any)
	if !ok || got["type"] != "counter/increment" {
		t.Errorf("expected the dispatched action back, got %v", returned)
	}
	if state := stateOf(t, store); state != 1 {
		t.Errorf("expected state 1, got %d", state)
	}

	mustDispatch(t, store, map[string]any{"type": "counter/decrement"})
	if state := stateOf(t, store); state != 0 {
		t.Errorf("expected state 0, got %d", state)
	}
}

func TestDispatchRejectsNonMapActions(t *testing.T) {
	store := mustNew(t, counter)

	invalid := []any{
		nil,
		42,
		"counter/increment",
		[]string{"counter/increment"},
		struct{ Type string }{"counter/increment"},
		func() {},
		map[int]string{1: "counter/increment"},
		(map[string]any)(nil),
	}
	for _, action := range invalid {
		if _, err := store.Dispatch(action); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("Dispatch(%v): expected ErrInvalidAction, got %v", action, err)
		}
	}

	// Rejected dispatches leave no trace
	if state := stateOf(t, store); state != 0 {
		t.Errorf("expected state untouched at 0, got %d", state)
	}
}

func TestDispatchRejectsMissingType(t *testing.T) {
	store := mustNew(t, counter)

	missing := []any{
		map[string]any{},
		map[string]any{"payload": 1},
	}
	for _, action := range missing {
		if _, err := store.Dispatch(action); !errors.Is(err, ErrMissingType) {
			t.Errorf("Dispatch(%v): expected ErrMissingType, got %v", action, err)
		}
	}
}

func TestDispatchAllowsNonStringTypes(t *testing.T) {
	store := mustNew(t, counter)

	// Only the presence of the key is checked. No reducer matches these,
	// so they fall through as unknown actions.
	defined := []any{
		map[string]any{"type": 7},
		map[string]any{"type": nil},
		map[string]any{"type": []string{"odd"}},
	}
	for _, action := range defined {
		if _, err := store.Dispatch(action); err != nil {
			t.Errorf("Dispatch(%v): expected success, got %v", action, err)
		}
	}

	if state := stateOf(t, store); state != 0 {
		t.Errorf("expected state untouched at 0, got %d", state)
	}
}

func TestSubscribeNotifiesAfterEveryDispatch(t *testing.T) {
	store := mustNew(t, counter)

	calls := 0
	unsubscribe, err := store.Subscribe(func() { calls++ })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	mustDispatch(t, store, increment())
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}

	// Unknown action types still complete a dispatch and notify
	mustDispatch(t, store, map[string]any{"type": "unrelated"})
	if calls != 3 {
		t.Errorf("expected 3 notifications, got %d", calls)
	}

	if err := unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mustDispatch(t, store, increment())
	if calls != 3 {
		t.Errorf("expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestSubscribeNilListener(t *testing.T) {
	store := mustNew(t, counter)
	if _, err := store.Subscribe(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil listener, got %v", err)
	}
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	store := mustNew(t, counter)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		if _, err := store.Subscribe(func() { order = append(order, name) }); err != nil {
			t.Fatalf("Subscribe(%s): %v", name, err)
		}
	}

	mustDispatch(t, store, increment())
	if fmt.Sprint(order) != "[a b c]" {
		t.Errorf("expected subscription order [a b c], got %v", order)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	store := mustNew(t, counter)

	calls := 0
	unsubscribe, err := store.Subscribe(func() { calls++ })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := unsubscribe(); err != nil {
			t.Fatalf("unsubscribe call %d: %v", i+1, err)
		}
	}

	mustDispatch(t, store, increment())
	if calls != 0 {
		t.Errorf("expected no notifications, got %d", calls)
	}
}

func TestDuplicateListenerRemovedOnce(t *testing.T) {
	store := mustNew(t, counter)

	calls := 0
	listener := func() { calls++ }
	first, err := store.Subscribe(listener)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := store.Subscribe(listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Removing one registration leaves the other
	if err := first(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mustDispatch(t, store, increment())
	if calls != 1 {
		t.Errorf("expected 1 notification from the surviving registration, got %d", calls)
	}

	// Idempotent unsubscribe must not remove the second registration
	if err := first(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mustDispatch(t, store, increment())
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}

func TestSubscribeDuringNotificationDefersToNextDispatch(t *testing.T) {
	store := mustNew(t, counter)

	lateCalls := 0
	added := false
	if _, err := store.Subscribe(func() {
		if !added {
			added = true
			// First notification: add a listener mid-pass.
			if _, err := store.Subscribe(func() { lateCalls++ }); err != nil {
				t.Errorf("Subscribe during notification: %v", err)
			}
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	if lateCalls != 0 {
		t.Errorf("listener added mid-pass should not run this pass, got %d calls", lateCalls)
	}

	mustDispatch(t, store, increment())
	if lateCalls != 1 {
		t.Errorf("listener added mid-pass should run next dispatch, got %d calls", lateCalls)
	}
}

func TestUnsubscribeDuringNotificationKeepsSnapshot(t *testing.T) {
	store := mustNew(t, counter)

	var unsubscribeLast Unsubscribe
	lastCalls := 0

	if _, err := store.Subscribe(func() {
		if err := unsubscribeLast(); err != nil {
			t.Errorf("unsubscribe during notification: %v", err)
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	var err error
	unsubscribeLast, err = store.Subscribe(func() { lastCalls++ })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The pass that performs the removal still runs the snapshot it
	// started with.
	mustDispatch(t, store, increment())
	if lastCalls != 1 {
		t.Errorf("expected the removed listener to finish the current pass, got %d calls", lastCalls)
	}

	mustDispatch(t, store, increment())
	if lastCalls != 1 {
		t.Errorf("expected no notification after removal, got %d calls", lastCalls)
	}
}

func TestListenerMayDispatch(t *testing.T) {
	store := mustNew(t, counter)

	// One follow-up dispatch from a listener, guarded so it cannot loop.
	fired := false
	if _, err := store.Subscribe(func() {
		if !fired {
			fired = true
			mustDispatch(t, store, increment())
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	if state := stateOf(t, store); state != 2 {
		t.Errorf("expected state 2 after chained dispatch, got %d", state)
	}
}

func TestReducerMayNotDispatch(t *testing.T) {
	var store Store[int]
	var reentrant error
	reducer := func(state int, action any) (int, error) {
		if typ, _ := ActionType(action); typ == "reenter" {
			_, reentrant = store.Dispatch(increment())
		}
		return state, nil
	}
	store = mustNew(t, reducer)

	mustDispatch(t, store, map[string]any{"type": "reenter"})
	if !errors.Is(reentrant, ErrDispatchInProgress) {
		t.Errorf("expected ErrDispatchInProgress from nested dispatch, got %v", reentrant)
	}

	// The fence resets, later dispatches work
	mustDispatch(t, store, map[string]any{"type": "reenter"})
}

func TestReducerMayNotReadOrSubscribe(t *testing.T) {
	var store Store[int]
	var getErr, subErr, unsubErr, replaceErr error
	var unsubscribe Unsubscribe

	reducer := func(state int, action any) (int, error) {
		if typ, _ := ActionType(action); typ == "misbehave" {
			_, getErr = store.GetState()
			_, subErr = store.Subscribe(func() {})
			unsubErr = unsubscribe()
			_, replaceErr = store.ReplaceReducer(counter)
		}
		return state, nil
	}
	store = mustNew(t, reducer)

	var err error
	unsubscribe, err = store.Subscribe(func() {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, map[string]any{"type": "misbehave"})
	for name, err := range map[string]error{
		"GetState":       getErr,
		"Subscribe":      subErr,
		"Unsubscribe":    unsubErr,
		"ReplaceReducer": replaceErr,
	} {
		if !errors.Is(err, ErrDispatchInProgress) {
			t.Errorf("%s from a reducer: expected ErrDispatchInProgress, got %v", name, err)
		}
	}

	// The blocked unsubscribe attempt must not have burned the
	// registration; a later call still removes it.
	if err := unsubscribe(); err != nil {
		t.Errorf("unsubscribe after dispatch: %v", err)
	}
}

func TestReducerErrorLeavesStateAndListenersUntouched(t *testing.T) {
	boom := errors.New("invalid transition")
	reducer := func(state int, action any) (int, error) {
		if typ, _ := ActionType(action); typ == "explode" {
			return 0, boom
		}
		return counter(state, action)
	}
	store := mustNew(t, reducer)
	mustDispatch(t, store, increment())

	calls := 0
	if _, err := store.Subscribe(func() { calls++ }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := store.Dispatch(map[string]any{"type": "explode"}); !errors.Is(err, boom) {
		t.Errorf("expected the reducer error back, got %v", err)
	}
	if state := stateOf(t, store); state != 1 {
		t.Errorf("expected state to survive the failed dispatch, got %d", state)
	}
	if calls != 0 {
		t.Errorf("expected no notification for a failed dispatch, got %d", calls)
	}

	// The store stays usable
	mustDispatch(t, store, increment())
	if state := stateOf(t, store); state != 2 {
		t.Errorf("expected state 2, got %d", state)
	}
	if calls != 1 {
		t.Errorf("expected 1 notification, got %d", calls)
	}
}

func TestReducerPanicLeavesStoreUsable(t *testing.T) {
	reducer := func(state int, action any) (int, error) {
		if typ, _ := ActionType(action); typ == "panic" {
			panic("reducer bug")
		}
		return counter(state, action)
	}
	store := mustNew(t, reducer)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the reducer panic to propagate")
			}
		}()
		_, _ = store.Dispatch(map[string]any{"type": "panic"})
	}()

	// The dispatching fence must have been reset on the way out
	mustDispatch(t, store, increment())
	if state := stateOf(t, store); state != 1 {
		t.Errorf("expected state 1 after recovery, got %d", state)
	}
}

func TestReplaceReducer(t *testing.T) {
	store := mustNew(t, counter)
	mustDispatch(t, store, increment())

	doubler := func(state int, action any) (int, error) {
		if typ, _ := ActionType(action); typ == "counter/increment" {
			return state * 2, nil
		}
		return state, nil
	}

	calls := 0
	if _, err := store.Subscribe(func() { calls++ }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	returned, err := store.ReplaceReducer(doubler)
	if err != nil {
		t.Fatalf("ReplaceReducer: %v", err)
	}
	if returned != store {
		t.Error("expected ReplaceReducer to return the same store")
	}
	if calls != 1 {
		t.Errorf("expected the replace dispatch to notify, got %d calls", calls)
	}

	// State survives the swap and the new reducer drives from here
	if state := stateOf(t, store); state != 1 {
		t.Errorf("expected state 1 after swap, got %d", state)
	}
	mustDispatch(t, store, increment())
	if state := stateOf(t, store); state != 2 {
		t.Errorf("expected doubler to produce 2, got %d", state)
	}
}

func TestReplaceReducerNil(t *testing.T) {
	store := mustNew(t, counter)
	if _, err := store.ReplaceReducer(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetStateInsideListener(t *testing.T) {
	store := mustNew(t, counter)

	var observed int
	if _, err := store.Subscribe(func() {
		state, err := store.GetState()
		if err != nil {
			t.Errorf("GetState inside listener: %v", err)
		}
		observed = state
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	if observed != 1 {
		t.Errorf("expected listener to observe the settled state 1, got %d", observed)
	}
}
