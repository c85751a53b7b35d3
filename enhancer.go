package redux

import "fmt"

// Config carries everything a store creator needs besides the reducer.
// Options fill it in; enhancers receive it and pass it along, usually
// untouched, when they call the next creator in the chain.
type Config[S any] struct {
	// Preloaded is the initial state tree. It only applies when
	// HasPreloaded is true, so a zero-value state can still be preloaded
	// deliberately.
	Preloaded    S
	HasPreloaded bool

	// Enhancer wraps the store creator. New consumes and clears it before
	// the chain runs, so the base creator never sees it.
	Enhancer Enhancer[S]

	enhancerSet       bool
	duplicateEnhancer bool
}

// Option configures New.
type Option[S any] func(*Config[S])

// WithPreloadedState sets the initial state tree. Without it the zero
// value of S is handed to the reducer's init dispatch.
func WithPreloadedState[S any](state S) Option[S] {
	return func(c *Config[S]) {
		c.Preloaded = state
		c.HasPreloaded = true
	}
}

// WithEnhancer installs the enhancer. Passing it twice makes New fail
// with ErrMultipleEnhancers; compose enhancers into one instead.
func WithEnhancer[S any](enhancer Enhancer[S]) Option[S] {
	return func(c *Config[S]) {
		if c.enhancerSet {
			c.duplicateEnhancer = true
			return
		}
		c.enhancerSet = true
		c.Enhancer = enhancer
	}
}

// StoreCreator builds a store from a reducer and a Config. New's base
// creator has this shape, and enhancers both consume and produce it.
type StoreCreator[S any] func(reducer Reducer[S], cfg Config[S]) (Store[S], error)

// Enhancer wraps a StoreCreator to produce a store with extended
// behavior: a different dispatch, an instrumented subscribe, whatever the
// wrapper builds on top of the store the inner creator returns.
//
// New accepts exactly one enhancer. Merge several with ComposeEnhancers;
// the first argument ends up outermost and sees dispatches before the
// rest.
type Enhancer[S any] func(next StoreCreator[S]) StoreCreator[S]

// ComposeEnhancers merges enhancers into one, for New's single
// WithEnhancer slot. With no arguments it returns the identity enhancer.
func ComposeEnhancers[S any](enhancers ...Enhancer[S]) Enhancer[S] {
	fns := make([]func(StoreCreator[S]) StoreCreator[S], len(enhancers))
	for i, e := range enhancers {
		fns[i] = e
	}
	return Compose(fns...)
}

// WithDispatcher returns a store that behaves like base except that
// Dispatch goes through dispatch. This is the building block for
// middleware-style enhancers: wrap the base store's Dispatch in whatever
// chain you need and hand both back through this.
//
// The wrapper's ReplaceReducer still swaps the reducer on the base store,
// and the internal replace action takes the base dispatch path, not the
// override. Everything else (GetState, Subscribe, Observable) is the base
// store's own.
func WithDispatcher[S any](base Store[S], dispatch Dispatcher) (Store[S], error) {
	if base == nil {
		return nil, fmt.Errorf("%w: base store must not be nil", ErrInvalidArgument)
	}
	if dispatch == nil {
		return nil, fmt.Errorf("%w: dispatch must not be nil", ErrInvalidArgument)
	}
	return &dispatchOverride[S]{Store: base, dispatch: dispatch}, nil
}

type dispatchOverride[S any] struct {
	Store[S]
	dispatch Dispatcher
}

func (d *dispatchOverride[S]) Dispatch(action any) (any, error) {
	return d.dispatch(action)
}

// ReplaceReducer delegates to the base store and returns the wrapper, so
// chained calls keep the overridden dispatch.
func (d *dispatchOverride[S]) ReplaceReducer(next Reducer[S]) (Store[S], error) {
	if _, err := d.Store.ReplaceReducer(next); err != nil {
		return nil, err
	}
	return d, nil
}
