package reactive

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Ref is a single reactive cell.
type Ref[T any] struct {
	value     T
	version   uint64
	observers observerList
}

// NewRef creates a cell holding initial.
func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{value: initial}
}

// Get returns the current value.
func (r *Ref[T]) Get() T {
	return r.value
}

// Set stores value and notifies observers when it differs from the current one.
func (r *Ref[T]) Set(value T) {
	if sameValue(any(r.value), any(value)) {
		return
	}
	old := r.value
	r.value = value
	r.version++
	r.observers.notify(Event{Op: OpSet, Old: old, New: value})
}

// Update applies fn to the current value and stores the result.
func (r *Ref[T]) Update(fn func(T) T) {
	r.Set(fn(r.value))
}

// Load implements Cell.
func (r *Ref[T]) Load() any {
	return r.value
}

// Store implements Cell. Numeric values are converted to T so state decoded
// from JSON (float64) can be written back into typed cells.
func (r *Ref[T]) Store(value any) error {
	typed, err := convertTo[T](value)
	if err != nil {
		return err
	}
	r.Set(typed)
	return nil
}

// Version implements Source.
func (r *Ref[T]) Version() uint64 {
	return r.version
}

// Observe implements Source.
func (r *Ref[T]) Observe(fn func(Event)) func() {
	return r.observers.add(fn)
}

func convertTo[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.ValueOf(value)
	if isNumeric(rv.Kind()) && isNumeric(target.Kind()) {
		return rv.Convert(target).Interface().(T), nil
	}
	// Decoded JSON ([]any, map[string]any) is reshaped into typed composites.
	if isComposite(rv.Kind()) && isComposite(target.Kind()) {
		data, err := json.Marshal(value)
		if err == nil {
			var typed T
			if err = json.Unmarshal(data, &typed); err == nil {
				return typed, nil
			}
		}
	}
	return zero, fmt.Errorf("reactive: cannot store %T into Ref[%s]", value, target)
}

func isComposite(kind reflect.Kind) bool {
	switch kind {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return true
	default:
		return false
	}
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// sameValue reports whether a and b are equal comparable values. Values that
// are not comparable are always considered different.
func sameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
