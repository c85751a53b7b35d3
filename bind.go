package redux

import "fmt"

// ActionCreator builds an action from call arguments. It returns any so
// creators can produce whatever map shape their action needs; Dispatch
// validates the result like any other action.
type ActionCreator func(args ...any) any

// BoundActionCreator is an ActionCreator fused to a Dispatcher: calling
// it builds the action and dispatches it in one step, returning whatever
// the dispatch returned.
type BoundActionCreator func(args ...any) (any, error)

// BindActionCreator fuses one creator to a dispatcher.
func BindActionCreator(creator ActionCreator, dispatch Dispatcher) (BoundActionCreator, error) {
	if creator == nil {
		return nil, fmt.Errorf("%w: action creator must not be nil", ErrInvalidArgument)
	}
	if dispatch == nil {
		return nil, fmt.Errorf("%w: dispatch must not be nil", ErrInvalidArgument)
	}
	return func(args ...any) (any, error) {
		return dispatch(creator(args...))
	}, nil
}

// BindActionCreators fuses a whole map of creators to one dispatcher,
// keyed the same way. Nil creators are skipped rather than bound, so a
// partially initialized creator map binds what it has.
func BindActionCreators(creators map[string]ActionCreator, dispatch Dispatcher) (map[string]BoundActionCreator, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("%w: dispatch must not be nil", ErrInvalidArgument)
	}
	bound := make(map[string]BoundActionCreator, len(creators))
	for name, creator := range creators {
		if creator == nil {
			continue
		}
		b, err := BindActionCreator(creator, dispatch)
		if err != nil {
			return nil, fmt.Errorf("creator %q: %w", name, err)
		}
		bound[name] = b
	}
	return bound, nil
}
