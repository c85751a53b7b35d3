package redux

import (
	"errors"
	"fmt"
	"testing"
)

func TestObservableEmitsCurrentStateOnSubscribe(t *testing.T) {
	store := mustNew(t, counter, WithPreloadedState(5))

	var got []int
	if _, err := store.Observable().Subscribe(ObserverFunc[int](func(s int) {
		got = append(got, s)
	})); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if fmt.Sprint(got) != "[5]" {
		t.Errorf("expected an immediate emission of 5, got %v", got)
	}
}

func TestObservableEmitsPerDispatch(t *testing.T) {
	store := mustNew(t, counter)

	var got []int
	unsubscribe, err := store.Observable().Subscribe(ObserverFunc[int](func(s int) {
		got = append(got, s)
	}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	mustDispatch(t, store, increment())

	// Unknown types still complete a dispatch, so they emit too, with an
	// unchanged value
	mustDispatch(t, store, map[string]any{"type": "unrelated"})

	if fmt.Sprint(got) != "[0 1 2 2]" {
		t.Errorf("expected emissions [0 1 2 2], got %v", got)
	}

	if err := unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mustDispatch(t, store, increment())
	if len(got) != 4 {
		t.Errorf("expected no emissions after unsubscribe, got %v", got)
	}
}

func TestObservableRejectsNilObserver(t *testing.T) {
	store := mustNew(t, counter)
	if _, err := store.Observable().Subscribe(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil observer, got %v", err)
	}
}

func TestObservableObserversAreIndependent(t *testing.T) {
	store := mustNew(t, counter)

	var first, second []int
	unsubFirst, err := store.Observable().Subscribe(ObserverFunc[int](func(s int) {
		first = append(first, s)
	}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := store.Observable().Subscribe(ObserverFunc[int](func(s int) {
		second = append(second, s)
	})); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	if err := unsubFirst(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mustDispatch(t, store, increment())

	if fmt.Sprint(first) != "[0 1]" {
		t.Errorf("expected first observer to see [0 1], got %v", first)
	}
	if fmt.Sprint(second) != "[0 1 2]" {
		t.Errorf("expected second observer to see [0 1 2], got %v", second)
	}
}

func TestEnhancedStoreIsObservableSource(t *testing.T) {
	var log []string
	store := mustNew(t, counter, WithEnhancer(taggingEnhancer("seen", &log)))

	// The wrapper must satisfy the interop surface like any store
	var source ObservableSource[int] = store

	var got []int
	if _, err := source.Observable().Subscribe(ObserverFunc[int](func(s int) {
		got = append(got, s)
	})); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	mustDispatch(t, store, increment())
	if fmt.Sprint(got) != "[0 1]" {
		t.Errorf("expected emissions [0 1] through the enhanced store, got %v", got)
	}
}
