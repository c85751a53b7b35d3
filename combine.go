package redux

import (
	"fmt"
	"sort"
)

// CombineReducers assembles one reducer from a map of them, one per state
// key. The combined reducer feeds each child the slice of state under its
// key and collects the results into a fresh map every dispatch, so a
// snapshot taken by a subscriber is never mutated by the next one.
//
// Children are vetted up front: each must accept a nil state and an
// unknown action type without error, returning its initial state. A child
// that errors here makes CombineReducers fail instead of poisoning the
// store later.
//
// At dispatch time, children run in sorted key order so a misbehaving
// child fails deterministically. The first child error aborts the
// dispatch with the child's key wrapped in.
func CombineReducers(reducers map[string]Reducer[any]) (Reducer[map[string]any], error) {
	if len(reducers) == 0 {
		return nil, fmt.Errorf("%w: at least one reducer is required", ErrInvalidArgument)
	}

	keys := make([]string, 0, len(reducers))
	for key, r := range reducers {
		if r == nil {
			return nil, fmt.Errorf("%w: reducer for key %q is nil", ErrInvalidArgument, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if err := assertReducerShape(keys, reducers); err != nil {
		return nil, err
	}

	return func(state map[string]any, action any) (map[string]any, error) {
		next := make(map[string]any, len(keys))
		for _, key := range keys {
			child, err := reducers[key](state[key], action)
			if err != nil {
				return nil, fmt.Errorf("reducer %q: %w", key, err)
			}
			next[key] = child
		}
		return next, nil
	}, nil
}

// assertReducerShape runs every child against the init action and a
// random probe. Reducers that cannot produce an initial state or that
// reject unfamiliar action types break the combined contract, so they are
// reported by key before the store ever exists.
func assertReducerShape(keys []string, reducers map[string]Reducer[any]) error {
	init := initAction()
	for _, key := range keys {
		if _, err := reducers[key](nil, init); err != nil {
			return fmt.Errorf("%w: reducer %q errored during initialization: %v", ErrInvalidArgument, key, err)
		}
		if _, err := reducers[key](nil, probeAction()); err != nil {
			return fmt.Errorf("%w: reducer %q errored on an unknown action type: %v", ErrInvalidArgument, key, err)
		}
	}
	return nil
}
