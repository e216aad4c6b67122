package core

// Items is a lazily produced, ordered sequence of batch items. A producer
// reports a failure by yielding a non-nil error, which aborts the batch.
// Items can be ranged over directly:
//
//	for item, err := range items { ... }
type Items[T any] func(yield func(T, error) bool)

// ItemsOf returns an eager sequence over the given values.
func ItemsOf[T any](values ...T) Items[T] {
	return ItemsFromSlice(values)
}

// ItemsFromSlice returns a sequence over values. The slice is not copied.
func ItemsFromSlice[T any](values []T) Items[T] {
	return func(yield func(T, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// ItemsFunc returns a sequence backed by next. Each call to next returns the
// next value, or ok=false when the sequence is exhausted, or an error.
func ItemsFunc[T any](next func() (value T, ok bool, err error)) Items[T] {
	return func(yield func(T, error) bool) {
		for {
			v, ok, err := next()
			if err != nil {
				yield(v, err)
				return
			}
			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}

// ItemsError returns a sequence that fails immediately with err.
func ItemsError[T any](err error) Items[T] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Collect drains the sequence into a slice. The first producer error stops
// iteration and is returned with no partial result.
func (s Items[T]) Collect() ([]T, error) {
	var out []T
	if s == nil {
		return out, nil
	}
	for v, err := range s {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
