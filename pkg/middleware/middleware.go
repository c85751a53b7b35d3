package middleware

import (
	"errors"
	"fmt"

	redux "github.com/wjohnso-insight/scc-redux"
)

// ErrEarlyDispatch is returned when a middleware dispatches through its
// API while the chain is still being assembled. Middleware constructors
// run before the final dispatch exists; defer any dispatching into the
// wrapped handler they return.
var ErrEarlyDispatch = errors.New("middleware: dispatching while the chain is being constructed is not allowed")

// API is the slice of the store a middleware may touch: reading settled
// state and dispatching. Dispatch here always re-enters the full chain,
// never the inner remainder, so an action synthesized by one middleware
// is seen by all of them.
type API[S any] interface {
	GetState() (S, error)
	Dispatch(action any) (any, error)
}

// Middleware builds a dispatch wrapper. The outer func receives the
// store API once, at chain assembly; the inner func receives the next
// dispatcher and returns the wrapped one.
type Middleware[S any] func(api API[S]) func(next redux.Dispatcher) redux.Dispatcher

// Apply turns a middleware chain into a store enhancer. The enhancer
// lets the inner creator build the store, assembles the chain around the
// store's own Dispatch, and hands back a store whose Dispatch is the
// outermost wrapper.
//
// The store's bootstrap dispatch happens inside the inner creator,
// before the chain exists, so middleware never sees it.
func Apply[S any](middlewares ...Middleware[S]) redux.Enhancer[S] {
	return func(next redux.StoreCreator[S]) redux.StoreCreator[S] {
		return func(reducer redux.Reducer[S], cfg redux.Config[S]) (redux.Store[S], error) {
			store, err := next(reducer, cfg)
			if err != nil {
				return nil, err
			}

			// Late-bound: the API dispatches through this variable, which
			// only points at the assembled chain once every middleware has
			// been constructed.
			dispatch := redux.Dispatcher(func(action any) (any, error) {
				return nil, ErrEarlyDispatch
			})
			api := &storeAPI[S]{
				store:    store,
				dispatch: func(action any) (any, error) { return dispatch(action) },
			}

			chain := make([]func(redux.Dispatcher) redux.Dispatcher, len(middlewares))
			for i, mw := range middlewares {
				if mw == nil {
					return nil, fmt.Errorf("%w: middleware %d is nil", redux.ErrInvalidArgument, i)
				}
				chain[i] = mw(api)
				if chain[i] == nil {
					return nil, fmt.Errorf("%w: middleware %d built a nil wrapper", redux.ErrInvalidArgument, i)
				}
			}
			dispatch = redux.Compose(chain...)(store.Dispatch)

			return redux.WithDispatcher(store, dispatch)
		}
	}
}

// storeAPI adapts a store and the late-bound chain dispatch to the API
// interface.
type storeAPI[S any] struct {
	store    redux.Store[S]
	dispatch redux.Dispatcher
}

func (a *storeAPI[S]) GetState() (S, error) {
	return a.store.GetState()
}

func (a *storeAPI[S]) Dispatch(action any) (any, error) {
	return a.dispatch(action)
}
