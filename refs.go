package dinia

import (
	"github.com/goliatone/go-dinia/internal/hydrate"
	"github.com/goliatone/go-dinia/reactive"
)

// StoreToRefs returns a source for every state key, getter and reactive
// property of s. State keys map to cells that read and write the store state,
// so values can be passed around without losing reactivity. Actions are
// skipped.
func StoreToRefs(s *Store) map[string]reactive.Source {
	refs := make(map[string]reactive.Source, s.state.Len()+len(s.getters))
	for _, key := range s.state.Keys() {
		raw, _ := s.state.Raw(key)
		switch typed := raw.(type) {
		case reactive.Cell:
			refs[key] = typed
		case *reactive.Map:
			refs[key] = typed
		default:
			refs[key] = reactive.ToRef(s.state, key)
		}
	}
	for name, node := range s.getters {
		refs[name] = node.source
	}
	for key, value := range s.props {
		if source, ok := value.(reactive.Source); ok {
			refs[key] = source
		}
	}
	return refs
}

// StateOption configures StateAs.
type StateOption func(*stateConfig)

type stateConfig struct {
	strict   bool
	prepare  []func(storeID string, state map[string]any) (map[string]any, error)
	validate []func(storeID string, target any) error
	decode   func(storeID string, state map[string]any, target any) error
}

// Strict rejects state keys the target type does not declare.
func Strict() StateOption {
	return func(cfg *stateConfig) {
		cfg.strict = true
	}
}

// Prepare rewrites the snapshot before it is decoded. fn receives a JSON
// normalised copy; returning nil keeps it.
func Prepare(fn func(storeID string, state map[string]any) (map[string]any, error)) StateOption {
	return func(cfg *stateConfig) {
		if fn != nil {
			cfg.prepare = append(cfg.prepare, fn)
		}
	}
}

// Validate checks the decoded value. target is a pointer to the T of
// StateAs and may be adjusted in place.
func Validate(fn func(storeID string, target any) error) StateOption {
	return func(cfg *stateConfig) {
		if fn != nil {
			cfg.validate = append(cfg.validate, fn)
		}
	}
}

// DecodeWith replaces JSON decoding: fn fills target, a pointer to the T of
// StateAs. Strict has no effect with a custom decoder.
func DecodeWith(fn func(storeID string, state map[string]any, target any) error) StateOption {
	return func(cfg *stateConfig) {
		cfg.decode = fn
	}
}

// StateAs decodes a snapshot of the store state into T using its JSON form.
func StateAs[T any](s *Store, opts ...StateOption) (T, error) {
	cfg := stateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var decoderOpts []hydrate.DecoderOption[T]
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	for _, fn := range cfg.prepare {
		prepare := fn
		decoderOpts = append(decoderOpts, hydrate.WithPreHook[T](func(ctx hydrate.Context, state map[string]any) (map[string]any, error) {
			return prepare(ctx.StoreID, state)
		}))
	}
	if decode := cfg.decode; decode != nil {
		decoderOpts = append(decoderOpts, hydrate.WithCustomDecoder[T](func(ctx hydrate.Context, state map[string]any) (T, error) {
			var out T
			err := decode(ctx.StoreID, state, &out)
			return out, err
		}))
	}
	for _, fn := range cfg.validate {
		validate := fn
		decoderOpts = append(decoderOpts, hydrate.WithPostHook[T](func(ctx hydrate.Context, target *T) error {
			return validate(ctx.StoreID, target)
		}))
	}
	return hydrate.NewDecoder(decoderOpts...).Decode(hydrate.Context{StoreID: s.id}, s.state.Snapshot())
}
