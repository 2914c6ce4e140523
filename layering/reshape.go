package layering

import (
	"encoding/json"
	"math"
	"reflect"
)

// Reshape converts value to the Go types found at the same place in
// template. It undoes what a JSON round trip does to a state tree: float64
// numbers go back to the template's integer types and []any or
// map[string]any go back to typed slices, maps and structs. Parts the
// template does not describe, and parts that do not convert cleanly, are
// returned unchanged.
func Reshape(value, template any) any {
	if value == nil || template == nil {
		return value
	}
	shaped := reshapeValue(reflect.ValueOf(value), reflect.ValueOf(template))
	if !shaped.IsValid() {
		return value
	}
	return shaped.Interface()
}

func reshapeValue(v, tmpl reflect.Value) reflect.Value {
	v = concrete(v)
	tmpl = concrete(tmpl)
	if !v.IsValid() || !tmpl.IsValid() {
		return v
	}
	target := tmpl.Type()

	if v.Type() == target {
		switch {
		case v.Kind() == reflect.Map && target.Key().Kind() == reflect.String && target.Elem().Kind() == reflect.Interface:
			if v.IsNil() || tmpl.IsNil() {
				return v
			}
			out := reflect.MakeMapWithSize(target, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				item := iter.Value()
				if shape := tmpl.MapIndex(iter.Key()); shape.IsValid() {
					item = boxed(reshapeValue(item, shape), target.Elem())
				}
				out.SetMapIndex(iter.Key(), item)
			}
			return out
		case v.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Interface:
			if v.IsNil() {
				return v
			}
			out := reflect.MakeSlice(target, v.Len(), v.Len())
			for i := 0; i < v.Len(); i++ {
				item := v.Index(i)
				if i < tmpl.Len() {
					item = boxed(reshapeValue(item, tmpl.Index(i)), target.Elem())
				}
				out.Index(i).Set(item)
			}
			return out
		}
		return v
	}

	switch {
	case isNumber(v.Kind()) && isNumber(target.Kind()):
		if isFloat(v.Kind()) && !isFloat(target.Kind()) {
			f := v.Float()
			if f != math.Trunc(f) {
				return v
			}
		}
		if !v.Type().ConvertibleTo(target) {
			return v
		}
		return v.Convert(target)
	case isComposite(v.Kind()) && isComposite(target.Kind()):
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return v
		}
		out := reflect.New(target)
		if err := json.Unmarshal(data, out.Interface()); err != nil {
			return v
		}
		return out.Elem()
	}
	return v
}

func concrete(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func boxed(v reflect.Value, elem reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(elem)
	}
	return v
}

func isNumber(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || isFloat(k)
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isComposite(k reflect.Kind) bool {
	switch k {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
