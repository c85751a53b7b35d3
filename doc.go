// Package redux provides a predictable state container: one state tree
// per store, evolved only by dispatching actions through a pure reducer.
//
// State flows one way. Actions describe what happened, the reducer
// computes the next state from the current one, and subscribers read the
// result. Nothing else writes state.
//
// # Core Types
//
// Store[S] owns a state tree of type S:
//
//	store, err := redux.New(counter)
//	store.Dispatch(map[string]any{"type": "counter/increment"})
//	n, _ := store.GetState()
//
// Reducer[S] is the pure transition function:
//
//	func counter(state int, action any) (int, error) {
//	    switch t, _ := redux.ActionType(action); t {
//	    case "counter/increment":
//	        return state + 1, nil
//	    case "counter/decrement":
//	        return state - 1, nil
//	    default:
//	        return state, nil
//	    }
//	}
//
// Actions are plain string-keyed maps carrying a "type" key; the value
// is a string by convention. Dispatch rejects any other shape before the
// reducer runs.
//
// # Subscriptions
//
// Subscribe registers a func called after every completed dispatch. Each
// dispatch notifies a snapshot of the listener list taken just before the
// notification pass starts, so subscriptions edited mid-pass take effect
// at the next dispatch: a listener added mid-pass is not called this
// pass, and one removed mid-pass is still called if its turn had not yet
// come. Listeners may read state, manage subscriptions, and dispatch;
// reducers may do none of those.
//
// # Enhancers and Middleware
//
// An Enhancer wraps the store creator to build a store with extended
// behavior. Middleware is the common case, layering around Dispatch; the
// middleware package turns a chain of middleware into an Enhancer:
//
//	store, err := redux.New(counter,
//	    redux.WithEnhancer(middleware.Apply(
//	        middleware.Logger[int](middleware.WithLogger(slog.Default())),
//	    )))
//
// # Concurrency
//
// A Store is not safe for concurrent use and takes no locks. Confine each
// store to one goroutine and feed it actions through a channel; the
// store's internal phase tracking only guards against reentrancy from
// reducers, not against races.
package redux
