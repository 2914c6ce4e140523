package layering

import (
	"testing"
	"time"
)

func TestFindNonPlain(t *testing.T) {
	type marker struct{}

	cases := []struct {
		name  string
		value any
		allow func(any) bool
		path  string
		found bool
	}{
		{name: "nil", value: nil},
		{name: "plain tree", value: map[string]any{
			"n":    1,
			"tags": []any{"a", map[string]any{"ok": true}},
		}},
		{name: "struct root", value: marker{}, path: ".", found: true},
		{name: "nested time", value: map[string]any{
			"user": map[string]any{"created": time.Now()},
		}, path: "user.created", found: true},
		{name: "slice element", value: map[string]any{
			"items": []any{1, func() {}},
		}, path: "items[1]", found: true},
		{name: "allowed value", value: map[string]any{"m": &marker{}}, allow: func(v any) bool {
			_, ok := v.(*marker)
			return ok
		}},
		{name: "non string keys", value: map[int]any{1: "a"}, path: ".", found: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path, found := FindNonPlain(tc.value, tc.allow)
			if found != tc.found || path != tc.path {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tc.path, tc.found, path, found)
			}
		})
	}
}
