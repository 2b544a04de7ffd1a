package label

import (
	"fmt"
	"reflect"

	"github.com/kevinxiao27/multiselect/mserrors"
)

// Func generates the display label of an item. ok=false means the generator
// had no label for it, which is a host programming error.
type Func[T any] func(item T) (label string, ok bool)

// Of adapts a generator that always has a label.
func Of[T any](fn func(T) string) Func[T] {
	return func(item T) (string, bool) { return fn(item), true }
}

// Default labels items with fmt.Sprint.
func Default[T any]() Func[T] {
	return Of(func(item T) string { return fmt.Sprint(item) })
}

// Generate returns the label of item. A nil item has the empty label.
func Generate[T any](fn Func[T], item T) (string, error) {
	if IsNil(item) {
		return "", nil
	}
	s, ok := fn(item)
	if !ok {
		return "", fmt.Errorf("%w: got no label for item '%v', the label generator may not return missing values",
			mserrors.ErrLabelGeneration, item)
	}
	return s, nil
}

// IsNil reports whether item is a nil interface, pointer, map, slice, chan or func.
func IsNil[T any](item T) bool {
	v := reflect.ValueOf(any(item))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
