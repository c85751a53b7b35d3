package redux

// Compose chains unary functions right to left: Compose(f, g, h) returns
// a function computing f(g(h(v))). With no arguments it returns the
// identity function, with one it returns that function unchanged.
//
// Nil entries are not tolerated; calling the composed function panics on
// the first nil it reaches, the same as calling the nil directly.
func Compose[T any](fns ...func(T) T) func(T) T {
	switch len(fns) {
	case 0:
		return func(v T) T { return v }
	case 1:
		return fns[0]
	}
	return func(v T) T {
		for i := len(fns) - 1; i >= 0; i-- {
			v = fns[i](v)
		}
		return v
	}
}
