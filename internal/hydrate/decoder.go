// Package hydrate converts plain store state into typed values and back.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the store whose state is being decoded.
type Context struct {
	StoreID string
}

// PreHook lets callers normalise the state before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts state snapshots into typed values.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects state keys the target does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts state into T. The input map is never mutated.
func (d *Decoder[T]) Decode(ctx Context, state map[string]any) (T, error) {
	var zero T

	if state == nil {
		return zero, fmt.Errorf("hydrate: state is nil for store %q", ctx.StoreID)
	}

	current, err := Normalize(state)
	if err != nil {
		return zero, fmt.Errorf("hydrate: copy state for store %q: %w", ctx.StoreID, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for store %q failed: %w", ctx.StoreID, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		result, err = d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for store %q failed: %w", ctx.StoreID, err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal state for store %q: %w", ctx.StoreID, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			configure(decoder)
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode store %q: %w", ctx.StoreID, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for store %q failed: %w", ctx.StoreID, err)
		}
	}

	return result, nil
}

// ToMap converts a struct (or any JSON object encodable value) into a plain
// map. Maps are returned as copies.
func ToMap(value any) (map[string]any, error) {
	if value == nil {
		return map[string]any{}, nil
	}
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal %T: %w", value, err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("hydrate: %T is not an object: %w", value, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Normalize returns the JSON view of state: numbers become float64 and nested
// values become plain maps and slices.
func Normalize(state map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RootState decodes serialized root state: an object keyed by store id whose
// values are state objects.
func RootState(data []byte) (map[string]map[string]any, error) {
	var out map[string]map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("hydrate: decode root state: %w", err)
	}
	for id, state := range out {
		if state == nil {
			out[id] = map[string]any{}
		}
	}
	return out, nil
}
