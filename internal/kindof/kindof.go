// Package kindof classifies runtime values for diagnostics.
//
// Dispatch rejects anything that is not a plain string-keyed map, and the
// resulting errors quote the offending value's kind. Keeping the
// classification in one place keeps those messages consistent across the
// store, the middleware chain, and the test helpers.
package kindof

import "reflect"

// IsPlainMap reports whether v is a non-nil map keyed by strings. Every
// dispatched action must have this shape.
func IsPlainMap(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.IsNil() {
		return false
	}
	return rv.Type().Key().Kind() == reflect.String
}

// KindOf names the kind of v for error messages: "nil" for untyped nil,
// "nil map"/"nil pointer" for typed nils, the full map type when the key
// type is the problem, and the plain reflect kind otherwise.
func KindOf(v any) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return "nil map"
		}
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Type().String()
		}
		return "map"
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil pointer"
		}
		return "pointer to " + rv.Elem().Kind().String()
	default:
		return rv.Kind().String()
	}
}

// Lookup reads key from a string-keyed map of any value type. The second
// result is false when v is not a plain map or the key is absent.
func Lookup(v any, key string) (any, bool) {
	if !IsPlainMap(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	kv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !kv.IsValid() {
		return nil, false
	}
	return kv.Interface(), true
}
