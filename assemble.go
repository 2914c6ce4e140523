package dinia

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-dinia/internal/hydrate"
	"github.com/goliatone/go-dinia/layering"
	"github.com/goliatone/go-dinia/reactive"
	"go.uber.org/zap"
)

// obtain returns the registered store for d, assembling and registering it
// on first use.
func (c *Container) obtain(d *Definition) (*Store, error) {
	existing, plugins, err := c.reserve(d.id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	s := &Store{
		id:        d.id,
		def:       d,
		container: c,
		scope:     c.currentScope().Child(),
		getters:   make(map[string]*getterNode),
		actions:   make(map[string]ActionFunc),
		props:     make(map[string]any),
	}

	registered := false
	defer func() {
		if !registered {
			s.scope.Stop()
			c.release(d.id)
		}
	}()

	var raw any
	if d.setup != nil {
		raw, err = c.assembleSetup(s)
	} else {
		raw, err = c.assembleOptions(s)
	}
	if err != nil {
		return nil, err
	}

	s.stopObserving = s.state.Observe(s.observe)
	c.register(s)
	registered = true

	app := c.App()
	for i, plugin := range plugins {
		props, err := applyPlugin(plugin, PluginContext{Container: c, App: app, Store: s, Options: raw})
		if err != nil {
			s.Dispose()
			return nil, &PluginError{StoreID: d.id, Index: i, Err: err}
		}
		s.extend(props)
	}
	return s, nil
}

// applyPlugin runs plugin, turning a panic into its error.
func applyPlugin(plugin Plugin, pc PluginContext) (props Properties, err error) {
	defer func() {
		if r := recover(); r != nil {
			props, err = nil, panicError(r)
		}
	}()
	return plugin(pc)
}

func (c *Container) assembleOptions(s *Store) (any, error) {
	opts := s.def.options
	root := c.State()

	state, hydrated := root.Child(s.id)
	switch {
	case !hydrated:
		var initial any
		if opts.State != nil {
			initial = opts.State()
		}
		value, err := c.plainState(s.id, initial)
		if err != nil {
			return nil, err
		}
		root.Set(s.id, value)
		state, _ = root.Child(s.id)
	case opts.State != nil:
		// Hydrated values keep priority; State only restores their Go types.
		template, err := toStateMap(opts.State())
		if err != nil {
			return nil, configErr(s.id, err)
		}
		state.Merge(reshapeState(state.Snapshot(), template))
	}
	s.state = state

	for _, name := range sortedNames(opts.Getters) {
		getter := opts.Getters[name]
		if getter == nil {
			continue
		}
		if state.Has(name) {
			c.warn("dinia: getter shadows a state property",
				zap.String("store", s.id),
				zap.String("property", name),
			)
		}
		s.getters[name] = s.newGetter(name, getter)
	}

	for _, name := range sortedNames(opts.Actions) {
		action := opts.Actions[name]
		if action == nil {
			continue
		}
		s.actions[name] = s.bindAction(name, action)
	}

	s.reset = func() error {
		var fresh any
		if opts.State != nil {
			fresh = opts.State()
		}
		values, err := toStateMap(fresh)
		if err != nil {
			return configErr(s.id, err)
		}
		s.PatchFunc(func(state *reactive.Map) {
			state.Assign(values)
		})
		return nil
	}

	return *opts, nil
}

func (c *Container) assembleSetup(s *Store) (any, error) {
	root := c.State()
	state, hydrated := root.Child(s.id)
	if !hydrated {
		root.Set(s.id, map[string]any{})
		state, _ = root.Child(s.id)
	}
	s.state = state

	result := s.def.setup(&SetupContext{store: s})
	actions := make(map[string]any)

	for _, key := range sortedNames(result) {
		switch value := result[key].(type) {
		case *reactive.Map:
			if hydrated {
				if prev, ok := state.Child(key); ok && prev != value {
					value.Merge(reshapeState(prev.Snapshot(), value.Snapshot()))
				}
			}
			state.Set(key, value)
		case reactive.Derived:
			s.getters[key] = &getterNode{
				source: value,
				load:   func() (any, error) { return value.Load(), nil },
			}
		case reactive.Cell:
			if hydrated {
				c.hydrateCell(s.id, key, state, value)
			}
			state.Set(key, value)
		case Action:
			actions[key] = value
			s.actions[key] = s.bindAction(key, value)
		case func(*Store, ...any) (any, error):
			actions[key] = value
			s.actions[key] = s.bindAction(key, value)
		default:
			if fn, ok := asActionFunc(value); ok {
				actions[key] = value
				s.actions[key] = s.wrapAction(key, fn)
				continue
			}
			s.props[key] = value
		}
	}

	if s.def.config.resettable {
		initial := state.Snapshot()
		s.reset = func() error {
			s.PatchFunc(func(state *reactive.Map) {
				state.Merge(layering.Clone(initial))
			})
			return nil
		}
	}

	return SetupOptions{Actions: actions, Resettable: s.def.config.resettable}, nil
}

func (c *Container) hydrateCell(id, key string, state *reactive.Map, cell reactive.Cell) {
	prev, ok := state.Raw(key)
	if !ok || prev == any(cell) {
		return
	}
	var value any
	switch typed := prev.(type) {
	case *reactive.Map:
		value = typed.Snapshot()
	case reactive.Cell:
		value = typed.Load()
	default:
		value = typed
	}
	if err := cell.Store(value); err != nil {
		c.warn("dinia: hydrated value does not fit the state cell",
			zap.String("store", id),
			zap.String("property", key),
			zap.Error(err),
		)
	}
}

// plainState validates the initial state of an options store. Non plain
// values are reported and, when they are not maps, converted.
func (c *Container) plainState(id string, initial any) (any, error) {
	switch value := initial.(type) {
	case nil:
		return map[string]any{}, nil
	case *reactive.Map:
		return value, nil
	case map[string]any:
		if path, found := layering.FindNonPlain(value, isReactive); found {
			c.warn("dinia: state must be plain data",
				zap.String("store", id),
				zap.String("path", path),
			)
		}
		return value, nil
	}

	c.warn("dinia: state must be plain data",
		zap.String("store", id),
		zap.String("type", fmt.Sprintf("%T", initial)),
	)
	converted, err := hydrate.ToMap(initial)
	if err != nil {
		return nil, configErr(id, err)
	}
	return converted, nil
}

// reshapeState gives the values decoded from a serialized payload the Go
// types of template.
func reshapeState(values, template map[string]any) map[string]any {
	if shaped, ok := layering.Reshape(values, template).(map[string]any); ok {
		return shaped
	}
	return values
}

func toStateMap(value any) (map[string]any, error) {
	switch typed := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return typed, nil
	case *reactive.Map:
		return typed.Snapshot(), nil
	default:
		return hydrate.ToMap(typed)
	}
}

func isReactive(value any) bool {
	_, ok := value.(reactive.Source)
	return ok
}

// bindAction captures s so the action keeps acting on it however it is
// called.
func (s *Store) bindAction(name string, action Action) ActionFunc {
	return s.wrapAction(name, func(args ...any) (any, error) {
		return action(s, args...)
	})
}

func (s *Store) newGetter(name string, getter Getter) *getterNode {
	logger := s.container.cfg.logger
	computed := reactive.NewComputed(func() getterResult {
		value, err := getter.Compute(s)
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) && evalErr.Getter == "" {
			evalErr.Getter = name
		}
		if err != nil {
			logger.Debug("dinia: getter failed",
				zap.String("store", s.id),
				zap.String("getter", name),
				zap.Error(err),
			)
		}
		return getterResult{value: value, err: err}
	}, s.container.State())
	s.scope.OnStop(computed.Stop)

	return &getterNode{
		source: getterSource{computed},
		load: func() (any, error) {
			result := computed.Get()
			return result.value, result.err
		},
	}
}

// getterSource exposes a getter computed as a Derived holding the getter
// value.
type getterSource struct {
	*reactive.Computed[getterResult]
}

func (g getterSource) Load() any {
	return g.Get().value
}
