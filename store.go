package redux

import "fmt"

// Reducer computes the next state from the current state and an action.
// Reducers must be pure: same inputs, same output, no side effects. A
// reducer that does not recognize an action's type must return the state
// it was given, unchanged, with a nil error. Returning an error aborts the
// dispatch; the store keeps the previous state and notifies nobody.
type Reducer[S any] func(state S, action any) (S, error)

// Dispatcher has the shape of Store.Dispatch. Middleware and bound action
// creators are written against this type so they compose with any store,
// wrapped or not.
type Dispatcher func(action any) (any, error)

// Unsubscribe removes the listener it was returned for. Calling it more
// than once is harmless; calls after the first return nil without touching
// the listener list. It returns ErrDispatchInProgress when invoked from
// inside a reducer.
type Unsubscribe func() error

// Store holds a state tree of type S and evolves it by dispatching
// actions through a reducer.
//
// A Store is not safe for concurrent use. It is built for single-goroutine
// ownership: confine each store to one goroutine and feed it through a
// channel, the way an event loop owns its state. The reentrancy checks
// inside guard against reducers calling back into the store, not against
// data races.
type Store[S any] interface {
	// Dispatch validates the action, runs the reducer, and notifies
	// listeners. It returns the action it was given so callers can chain
	// on it; an enhanced store's Dispatch may return something else
	// entirely (a middleware result, for instance).
	Dispatch(action any) (any, error)

	// Subscribe registers a listener called after every dispatch that
	// completes a reducer run. Listeners take no arguments; they read
	// whatever they need via GetState. A listener added while a
	// notification pass is running is not called until the next dispatch,
	// and one removed mid-pass still receives the current notification if
	// its turn had not yet come. The package documentation spells out the
	// snapshot rules.
	Subscribe(listener func()) (Unsubscribe, error)

	// GetState returns the current state tree. It errors only when called
	// from inside a reducer, which already has the state as an argument.
	GetState() (S, error)

	// ReplaceReducer swaps the reducer and dispatches an internal action
	// so the new reducer can fill in state it owns. It returns the store
	// it was called on, for chaining.
	ReplaceReducer(next Reducer[S]) (Store[S], error)

	// Observable adapts the store for push-style consumers. The returned
	// Observable emits the current state on subscription and again after
	// every dispatch.
	Observable() Observable[S]
}

// New creates a Store driven by reducer. The zero value of S is the
// initial state unless WithPreloadedState supplies one. Construction
// dispatches an internal init action through the full dispatch path, so a
// reducer that errors on unknown actions fails construction rather than
// the first real dispatch.
//
// WithEnhancer installs a single enhancer around the store creator; pass
// several enhancers as one via Compose. Middleware is an enhancer, see
// the middleware package.
func New[S any](reducer Reducer[S], opts ...Option[S]) (Store[S], error) {
	var cfg Config[S]
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.duplicateEnhancer {
		return nil, ErrMultipleEnhancers
	}
	if cfg.enhancerSet && cfg.Enhancer == nil {
		return nil, fmt.Errorf("%w: enhancer must not be nil", ErrInvalidArgument)
	}

	create := StoreCreator[S](newStore[S])
	if cfg.Enhancer != nil {
		enhance := cfg.Enhancer
		cfg.Enhancer = nil
		create = enhance(create)
		if create == nil {
			return nil, fmt.Errorf("%w: enhancer returned a nil store creator", ErrInvalidArgument)
		}
	}
	return create(reducer, cfg)
}

// newStore is the base StoreCreator that every enhancer chain bottoms out
// in.
func newStore[S any](reducer Reducer[S], cfg Config[S]) (Store[S], error) {
	if reducer == nil {
		return nil, fmt.Errorf("%w: reducer must not be nil", ErrInvalidArgument)
	}
	s := &store[S]{reducer: reducer, aliased: true}
	if cfg.HasPreloaded {
		s.state = cfg.Preloaded
	}
	if _, err := s.Dispatch(initAction()); err != nil {
		return nil, err
	}
	return s, nil
}

// phase tracks whether a reducer is currently executing. The store moves
// to phaseDispatching for exactly the reducer call and is back in
// phaseIdle before listeners run, so listeners may read state, subscribe,
// unsubscribe, and even dispatch again.
type phase int

const (
	phaseIdle phase = iota
	phaseDispatching
)

// listenerEntry wraps a subscribed func so the listener list can hold
// duplicates of the same func and still remove exactly one registration:
// entries are compared by pointer, not by the func they carry.
type listenerEntry struct {
	fn func()
}

type store[S any] struct {
	reducer Reducer[S]
	state   S
	phase   phase

	// current is the snapshot most recently handed to a notification pass.
	// next is the working list that Subscribe and Unsubscribe edit. When
	// aliased is true the two share a backing array and the next edit must
	// copy before writing, so an in-flight pass never sees the edit.
	current []*listenerEntry
	next    []*listenerEntry
	aliased bool
}

// mutableNext makes s.next safe to edit, cloning it off the committed
// snapshot if the two still share a backing array.
func (s *store[S]) mutableNext() {
	if !s.aliased {
		return
	}
	s.next = append([]*listenerEntry(nil), s.next...)
	s.aliased = false
}

// commit publishes the working list as the snapshot for the notification
// pass that is about to run, and re-aliases the two lists so later edits
// copy first.
func (s *store[S]) commit() []*listenerEntry {
	s.current = s.next
	s.aliased = true
	return s.current
}

func (s *store[S]) Dispatch(action any) (any, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}
	if s.phase == phaseDispatching {
		return nil, fmt.Errorf("%w: reducers may not dispatch actions", ErrDispatchInProgress)
	}

	next, err := s.reduce(action)
	if err != nil {
		return nil, err
	}
	s.state = next

	for _, entry := range s.commit() {
		entry.fn()
	}
	return action, nil
}

// reduce runs the reducer inside the dispatching phase. The deferred reset
// keeps the store usable after a reducer error or panic.
func (s *store[S]) reduce(action any) (S, error) {
	s.phase = phaseDispatching
	defer func() { s.phase = phaseIdle }()
	return s.reducer(s.state, action)
}

func (s *store[S]) GetState() (S, error) {
	if s.phase == phaseDispatching {
		var zero S
		return zero, fmt.Errorf("%w: the reducer already receives the state as an argument", ErrDispatchInProgress)
	}
	return s.state, nil
}

func (s *store[S]) Subscribe(listener func()) (Unsubscribe, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: listener must not be nil", ErrInvalidArgument)
	}
	if s.phase == phaseDispatching {
		return nil, fmt.Errorf("%w: reducers may not subscribe listeners", ErrDispatchInProgress)
	}

	entry := &listenerEntry{fn: listener}
	s.mutableNext()
	s.next = append(s.next, entry)

	subscribed := true
	return func() error {
		if !subscribed {
			return nil
		}
		if s.phase == phaseDispatching {
			return fmt.Errorf("%w: reducers may not remove listeners", ErrDispatchInProgress)
		}
		subscribed = false
		s.mutableNext()
		for i, e := range s.next {
			if e == entry {
				s.next = append(s.next[:i], s.next[i+1:]...)
				break
			}
		}
		return nil
	}, nil
}

func (s *store[S]) ReplaceReducer(next Reducer[S]) (Store[S], error) {
	if next == nil {
		return nil, fmt.Errorf("%w: next reducer must not be nil", ErrInvalidArgument)
	}
	if s.phase == phaseDispatching {
		return nil, fmt.Errorf("%w: reducers may not replace the reducer", ErrDispatchInProgress)
	}
	s.reducer = next
	if _, err := s.Dispatch(replaceAction()); err != nil {
		return nil, err
	}
	return s, nil
}
