package layering

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestReshapeRestoresDecodedTypes(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	template := map[string]any{
		"count":  0,
		"ratio":  0.5,
		"small":  int8(0),
		"tags":   []string{},
		"limits": map[string]int{},
		"origin": point{},
		"nested": map[string]any{"level": uint(0)},
		"list":   []any{0},
	}
	original := map[string]any{
		"count":  4,
		"ratio":  1.5,
		"small":  int8(3),
		"tags":   []string{"a", "b"},
		"limits": map[string]int{"max": 9},
		"origin": point{X: 1, Y: 2},
		"nested": map[string]any{"level": uint(7), "extra": "kept"},
		"list":   []any{5, "six"},
		"free":   2,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := Reshape(decoded, template)
	want := map[string]any{
		"count":  4,
		"ratio":  1.5,
		"small":  int8(3),
		"tags":   []string{"a", "b"},
		"limits": map[string]int{"max": 9},
		"origin": point{X: 1, Y: 2},
		"nested": map[string]any{"level": uint(7), "extra": "kept"},
		"list":   []any{5, "six"},
		"free":   float64(2),
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("reshaped state mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestReshapeLeavesLossyValues(t *testing.T) {
	got := Reshape(map[string]any{"count": 2.5, "name": 3.0}, map[string]any{"count": 0, "name": ""})
	want := map[string]any{"count": 2.5, "name": 3.0}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected unconvertible values to stay, got %#v", got)
	}
	if got := Reshape(nil, 1); got != nil {
		t.Fatalf("expected nil to stay nil, got %#v", got)
	}
	if got := Reshape(1.0, nil); got != 1.0 {
		t.Fatalf("expected values without a template to stay, got %#v", got)
	}
}
