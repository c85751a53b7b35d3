package redux

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/wjohnso-insight/scc-redux/internal/kindof"
)

// Actions are plain string-keyed maps carrying at least a "type" key,
// conventionally a string. Everything else in the map is payload and the
// store never looks at it.
//
// The store reserves a private namespace of action types for its own
// lifecycle: one dispatched when a store boots, one when the reducer is
// swapped, and a throwaway probe used to check that reducers tolerate
// actions they have never heard of. Each carries a random suffix per
// process so application code cannot match on them; reducers must hit
// their default branch and return the current state unchanged.

var (
	actionTypeInit    = "@@redux/INIT-" + randomSuffix()
	actionTypeReplace = "@@redux/REPLACE-" + randomSuffix()
)

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// initAction is dispatched once by the base store creator so the reducer
// populates the initial state tree.
func initAction() map[string]any {
	return map[string]any{"type": actionTypeInit}
}

// replaceAction is dispatched by ReplaceReducer so the incoming reducer
// populates any state shape the old one did not know about.
func replaceAction() map[string]any {
	return map[string]any{"type": actionTypeReplace}
}

// probeAction returns an action with a type no reducer can anticipate. A
// fresh suffix is drawn per call so even a reducer that logged one probe
// cannot match the next.
func probeAction() map[string]any {
	return map[string]any{"type": "@@redux/PROBE_UNKNOWN_ACTION-" + randomSuffix()}
}

// ActionType extracts the "type" field from an action as a string. The
// second result is false when the action is not a plain string-keyed map,
// the key is absent, or the value is not string-kinded. Dispatch itself
// only requires the key to be present; ActionType is for middleware and
// reducers that want the conventional string type for switching, labels,
// and log fields.
func ActionType(action any) (string, bool) {
	v, ok := kindof.Lookup(action, "type")
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	// Named string types still count as strings.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// validateAction enforces the action contract ahead of the reducer: a
// plain string-keyed map with a "type" key. The type's value is
// unconstrained, only its presence is checked. Every dispatch path runs
// through here, including the store's own lifecycle actions.
func validateAction(action any) error {
	if !kindof.IsPlainMap(action) {
		return fmt.Errorf("%w, got %s", ErrInvalidAction, kindof.KindOf(action))
	}
	if _, ok := kindof.Lookup(action, "type"); !ok {
		return fmt.Errorf("%w, got no \"type\" key", ErrMissingType)
	}
	return nil
}
