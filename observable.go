package redux

import "fmt"

// Observer receives state values pushed by an Observable.
type Observer[S any] interface {
	Next(state S)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc[S any] func(state S)

// Next calls f with the state.
func (f ObserverFunc[S]) Next(state S) { f(state) }

// Observable is a minimal push-style stream of state values. Subscribing
// emits the current state immediately and again after every completed
// dispatch, whether or not the state changed.
type Observable[S any] interface {
	Subscribe(observer Observer[S]) (Unsubscribe, error)
}

// ObservableSource is the interop surface for stream libraries: anything
// with an Observable method yielding state of type S satisfies it,
// including every Store in this package. Adapters should accept an
// ObservableSource rather than a concrete store so enhanced and plain
// stores both plug in.
type ObservableSource[S any] interface {
	Observable() Observable[S]
}

// Observable implements the Store interface.
func (s *store[S]) Observable() Observable[S] {
	return stateObservable[S]{store: s}
}

// stateObservable bridges a store's listener mechanism to the Observer
// push contract. Each Subscribe registers its own store listener, so
// independent observers unsubscribe independently.
type stateObservable[S any] struct {
	store Store[S]
}

func (o stateObservable[S]) Subscribe(observer Observer[S]) (Unsubscribe, error) {
	if observer == nil {
		return nil, fmt.Errorf("%w: observer must not be nil", ErrInvalidArgument)
	}
	unsubscribe, err := o.store.Subscribe(func() {
		if state, err := o.store.GetState(); err == nil {
			observer.Next(state)
		}
	})
	if err != nil {
		return nil, err
	}
	state, err := o.store.GetState()
	if err != nil {
		_ = unsubscribe()
		return nil, err
	}
	observer.Next(state)
	return unsubscribe, nil
}
