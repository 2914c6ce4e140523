package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type cartState struct {
	Items   []cartItem `json:"items"`
	Coupon  string     `json:"coupon"`
	Checked bool       `json:"checked"`
}

type cartItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		input     map[string]any
		options   []DecoderOption[cartState]
		expect    cartState
		expectErr string
	}{
		{
			name: "plain decode",
			input: map[string]any{
				"items":  []any{map[string]any{"name": "apple", "quantity": float64(2)}},
				"coupon": "SAVE",
			},
			expect: cartState{Items: []cartItem{{Name: "apple", Quantity: 2}}, Coupon: "SAVE"},
		},
		{
			name:      "nil state",
			input:     nil,
			expectErr: `state is nil for store "cart"`,
		},
		{
			name:      "unknown fields rejected",
			input:     map[string]any{"extra": 1},
			options:   []DecoderOption[cartState]{WithDisallowUnknownFields[cartState]()},
			expectErr: `decode store "cart"`,
		},
		{
			name:  "pre hook expands shorthand",
			input: map[string]any{"items": "pear x3"},
			options: []DecoderOption[cartState]{WithPreHook[cartState](func(_ Context, state map[string]any) (map[string]any, error) {
				raw, ok := state["items"].(string)
				if !ok {
					return state, nil
				}
				var name string
				var qty int
				if _, err := fmt.Sscanf(raw, "%s x%d", &name, &qty); err != nil {
					return nil, err
				}
				state["items"] = []any{map[string]any{"name": name, "quantity": qty}}
				return state, nil
			})},
			expect: cartState{Items: []cartItem{{Name: "pear", Quantity: 3}}},
		},
		{
			name:  "post hook validates",
			input: map[string]any{"checked": true},
			options: []DecoderOption[cartState]{WithPostHook[cartState](func(ctx Context, state *cartState) error {
				if state.Checked && len(state.Items) == 0 {
					return errors.New("checked out an empty cart")
				}
				return nil
			})},
			expectErr: "post-hook for store \"cart\" failed: checked out an empty cart",
		},
		{
			name:  "custom decoder",
			input: map[string]any{"coupon": "x"},
			options: []DecoderOption[cartState]{WithCustomDecoder[cartState](func(ctx Context, state map[string]any) (cartState, error) {
				return cartState{Coupon: ctx.StoreID + ":" + state["coupon"].(string)}, nil
			})},
			expect: cartState{Coupon: "cart:x"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewDecoder(tc.options...).Decode(Context{StoreID: "cart"}, tc.input)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded state mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"items": "pear x1"}
	decoder := NewDecoder(WithPreHook[cartState](func(_ Context, state map[string]any) (map[string]any, error) {
		state["items"] = []any{}
		return state, nil
	}))
	if _, err := decoder.Decode(Context{StoreID: "cart"}, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input["items"] != "pear x1" {
		t.Fatalf("expected input to stay untouched, got %#v", input["items"])
	}
}

func TestToMap(t *testing.T) {
	got, err := ToMap(cartState{Coupon: "A", Items: []cartItem{{Name: "b", Quantity: 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"items":   []any{map[string]any{"name": "b", "quantity": float64(1)}},
		"coupon":  "A",
		"checked": false,
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("unexpected map:\nwant: %#v\n got: %#v", want, got)
	}

	if _, err := ToMap([]int{1}); err == nil {
		t.Fatalf("expected error for non-object value")
	}
}

func TestRootState(t *testing.T) {
	got, err := RootState([]byte(`{"cart":{"n":1},"empty":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]map[string]any{
		"cart":  {"n": float64(1)},
		"empty": {},
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("unexpected root state %#v", got)
	}
	if _, err := RootState([]byte(`[1]`)); err == nil {
		t.Fatalf("expected error for non-object root")
	}
}
