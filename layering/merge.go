// Package layering deep-merges and clones plain state trees.
package layering

import "reflect"

// Merge composes state trees ordered from strongest to weakest. Nested objects
// are merged key by key; any other value from a stronger layer replaces the
// weaker one, slices included. Nil layers are skipped. The result never
// aliases the maps or slices of the inputs.
func Merge(layers ...map[string]any) map[string]any {
	present := make([]map[string]any, 0, len(layers))
	for _, layer := range layers {
		if layer != nil {
			present = append(present, layer)
		}
	}
	merged := MergeLayers(present...)
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

// Clone returns a deep copy of value. Pointers are copied as references so
// reactive cells embedded in a tree keep their identity.
func Clone[T any](value T) T {
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	return convert[T](cloned)
}

// MergeLayers is the typed form of Merge for any tree shape: maps, slices,
// arrays and exported struct fields. Zero pointers, nil maps and nil slices in
// a stronger layer fall through to weaker layers.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() {
		return zero
	}
	return convert[T](merged)
}

func convert[T any](v reflect.Value) T {
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	result := reflect.New(target).Elem()
	if v.Type().ConvertibleTo(target) {
		result.Set(v.Convert(target))
	} else {
		result.Set(v)
	}
	return result.Interface().(T)
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return fallback(strong, weak)
		}
		return strong
	case reflect.Interface:
		if strong.IsNil() {
			return fallback(strong, weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		} else if weak.IsValid() && weak.Kind() != reflect.Interface {
			weakElem = weak
		}
		merged := mergeValue(strong.Elem(), weakElem)
		boxed := reflect.New(strong.Type()).Elem()
		boxed.Set(merged)
		return boxed
	case reflect.Struct:
		result := reflect.New(strong.Type()).Elem()
		var weakStruct reflect.Value
		if weak.IsValid() && weak.Type() == strong.Type() {
			weakStruct = weak
		}
		for i := 0; i < strong.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if weakStruct.IsValid() {
				weakField = weakStruct.Field(i)
			}
			field.Set(mergeValue(strong.Field(i), weakField))
		}
		return result
	case reflect.Map:
		if strong.IsNil() {
			return fallback(strong, weak)
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Type() == strong.Type() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			if existing := result.MapIndex(key); existing.IsValid() {
				result.SetMapIndex(key, mergeValue(iter.Value(), existing))
				continue
			}
			result.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return result
	case reflect.Slice:
		if strong.IsNil() {
			return fallback(strong, weak)
		}
		return cloneValue(strong)
	default:
		return cloneValue(strong)
	}
}

// fallback returns a clone of weak when it can stand in for the empty strong
// value, and strong itself otherwise.
func fallback(strong, weak reflect.Value) reflect.Value {
	if !weak.IsValid() || !weak.Type().AssignableTo(strong.Type()) {
		return strong
	}
	return cloneValue(weak)
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		boxed := reflect.New(v.Type()).Elem()
		boxed.Set(elem)
		return boxed
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
