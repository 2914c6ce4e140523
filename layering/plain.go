package layering

import (
	"reflect"
	"strconv"
)

// FindNonPlain walks value and returns the path of the first element that is
// not plain data. Plain data is nil, booleans, numbers, strings, and maps with
// string keys or slices holding plain data. allow may accept extra values
// (such as reactive cells) and is consulted before the kind check.
func FindNonPlain(value any, allow func(any) bool) (path string, found bool) {
	return findNonPlain(reflect.ValueOf(value), "", allow)
}

func findNonPlain(v reflect.Value, path string, allow func(any) bool) (string, bool) {
	if !v.IsValid() {
		return "", false
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		return findNonPlain(v.Elem(), path, allow)
	}
	if allow != nil && v.CanInterface() && allow(v.Interface()) {
		return "", false
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "", false
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return display(path), true
		}
		iter := v.MapRange()
		for iter.Next() {
			if p, ok := findNonPlain(iter.Value(), join(path, iter.Key().String()), allow); ok {
				return p, true
			}
		}
		return "", false
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if p, ok := findNonPlain(v.Index(i), path+"["+strconv.Itoa(i)+"]", allow); ok {
				return p, true
			}
		}
		return "", false
	default:
		return display(path), true
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func display(path string) string {
	if path == "" {
		return "."
	}
	return path
}
