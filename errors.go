package redux

import "errors"

// ErrInvalidAction is returned by Dispatch when the action is not a plain
// string-keyed map. Reducers, middleware, and wire formats all rely on
// actions being inspectable key/value data, so structs, funcs, channels and
// the like are rejected before the reducer ever sees them.
//
// Applications should handle this by fixing the call site: build actions as
// map[string]any literals or through action creators (see BindActionCreator).
var ErrInvalidAction = errors.New("redux: actions must be plain string-keyed maps")

// ErrMissingType is returned by Dispatch when the action has no "type"
// key. Only the key's presence is enforced; by convention the value is a
// string, which is how reducers decide what to do, how middleware labels
// events, and how the reserved bootstrap actions stay distinguishable
// from application actions.
var ErrMissingType = errors.New("redux: actions must have a \"type\" field")

// ErrDispatchInProgress is returned when a store method that needs a
// settled state tree runs while a reducer is still executing. Reducers must
// stay pure: they receive the state as an argument and return the next
// state, nothing else.
//
// The usual cause is a reducer calling Dispatch, GetState, Subscribe, or an
// Unsubscribe func, directly or through something it invoked. Move that
// call into a subscriber or into middleware.
var ErrDispatchInProgress = errors.New("redux: reducer is executing")

// ErrInvalidArgument is returned when a constructor or store method is
// given something unusable: a nil reducer, a nil listener, a nil observer,
// a nil dispatcher. The wrapped message names the argument.
var ErrInvalidArgument = errors.New("redux: invalid argument")

// ErrMultipleEnhancers is returned by New when WithEnhancer is given more
// than once. Enhancers wrap the store creator, so several of them form a
// single chain; build that chain with Compose and pass the result as the
// one enhancer.
var ErrMultipleEnhancers = errors.New("redux: multiple enhancers are not supported, compose them into one")
