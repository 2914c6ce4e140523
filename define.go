package dinia

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-dinia/reactive"
)

// Options declares a store from a state initializer, getters and actions.
type Options struct {
	// ID is used when the store is defined with DefineOptions.
	ID string
	// State returns the initial state. It should return plain data; any other
	// value is converted and reported. A nil State starts from an empty map.
	State func() any
	// Getters are cached values derived from state.
	Getters map[string]Getter
	// Actions are the store methods. They always receive the owning store.
	Actions map[string]Action
}

// Getter derives a value from a store.
type Getter interface {
	Compute(s *Store) (any, error)
}

// GetterFunc is a Getter reading the live state and the owning store.
type GetterFunc func(state *reactive.Map, s *Store) any

// Compute implements Getter.
func (f GetterFunc) Compute(s *Store) (any, error) {
	return f(s.State(), s), nil
}

// Action is a store method. s is always the store the action was created for,
// however the bound function is obtained or called.
type Action func(s *Store, args ...any) (any, error)

// ActionFunc is an action bound to its store.
type ActionFunc func(args ...any) (any, error)

// SetupFunc builds a store imperatively. Returned cells and reactive maps
// become state, derived values become getters, functions become actions and
// anything else is kept as a plain property.
type SetupFunc func(sc *SetupContext) map[string]any

// SetupOption configures a setup store.
type SetupOption func(*setupConfig)

type setupConfig struct {
	resettable bool
}

// WithReset lets Reset restore the state captured right after setup.
func WithReset() SetupOption {
	return func(cfg *setupConfig) {
		cfg.resettable = true
	}
}

// SetupOptions is what plugins receive as raw options for setup stores.
type SetupOptions struct {
	Actions    map[string]any
	Resettable bool
}

// Definition is a reusable store accessor.
type Definition struct {
	id      string
	options *Options
	setup   SetupFunc
	config  setupConfig
}

// Define declares an options store under id.
func Define(id string, opts Options) (*Definition, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = strings.TrimSpace(opts.ID)
	}
	if id == "" {
		return nil, configErr("", ErrMissingStoreID)
	}
	opts.ID = id
	return &Definition{id: id, options: &opts}, nil
}

// DefineOptions declares an options store whose id is embedded in opts.
func DefineOptions(opts Options) (*Definition, error) {
	return Define("", opts)
}

// DefineSetup declares a setup store under id.
func DefineSetup(id string, fn SetupFunc, opts ...SetupOption) (*Definition, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, configErr("", ErrMissingStoreID)
	}
	if fn == nil {
		return nil, configErr(id, errors.New("setup function is nil"))
	}
	def := &Definition{id: id, setup: fn}
	for _, opt := range opts {
		if opt != nil {
			opt(&def.config)
		}
	}
	return def, nil
}

// Must panics when err is not nil. It is meant for package level
// definitions.
func Must(def *Definition, err error) *Definition {
	if err != nil {
		panic(err)
	}
	return def
}

// ID returns the store id.
func (d *Definition) ID() string {
	return d.id
}

// Use returns the store for the container resolved from ctx, creating it on
// first use.
func (d *Definition) Use(ctx context.Context) (*Store, error) {
	c := Active(ctx)
	if c == nil {
		return nil, &NoActiveContainerError{StoreID: d.id}
	}
	return c.obtain(d)
}

// UseIn returns the store for c, creating it on first use. A nil c resolves
// the active container.
func (d *Definition) UseIn(c *Container) (*Store, error) {
	if c == nil {
		return d.Use(context.Background())
	}
	return c.obtain(d)
}

// MustUse is Use that panics on error.
func (d *Definition) MustUse(ctx context.Context) *Store {
	s, err := d.Use(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
