package dinia

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-dinia/reactive"
)

// Store is one instance of a definition inside a container.
type Store struct {
	id        string
	def       *Definition
	container *Container
	state     *reactive.Map
	scope     *reactive.Scope
	getters   map[string]*getterNode
	actions   map[string]ActionFunc
	props     map[string]any
	reset     func() error

	subscriptions []*subscription
	listeners     []*actionListener
	stopObserving func()
	patchDepth    int
	patchEvents   []reactive.Event
	disposed      bool
}

type getterNode struct {
	source reactive.Derived
	load   func() (any, error)
}

type getterResult struct {
	value any
	err   error
}

// ID returns the store id.
func (s *Store) ID() string {
	return s.id
}

// Container returns the owning container.
func (s *Store) Container() *Container {
	return s.container
}

// State returns the live state. It is the same map found under the store id in
// the container root state.
func (s *Store) State() *reactive.Map {
	return s.state
}

// SetState assigns values onto the existing state as a single patch function
// mutation. Keys absent from values are kept.
func (s *Store) SetState(values map[string]any) {
	s.PatchFunc(func(state *reactive.Map) {
		state.Assign(values)
	})
}

// Get looks key up among plugin properties, getters and state, in that order.
func (s *Store) Get(key string) (any, bool) {
	if value, ok := s.props[key]; ok {
		return value, true
	}
	if node, ok := s.getters[key]; ok {
		value, _ := node.load()
		return value, true
	}
	return s.state.Get(key)
}

// Value is Get without the presence flag.
func (s *Store) Value(key string) any {
	value, _ := s.Get(key)
	return value
}

// Set writes a state key, or stores a plain property when key is not part of
// the state. Getters cannot be assigned.
func (s *Store) Set(key string, value any) error {
	if s.state.Has(key) {
		s.state.Set(key, value)
		return nil
	}
	if _, ok := s.getters[key]; ok {
		return &NotSupportedError{StoreID: s.id, Operation: fmt.Sprintf("assigning getter %q", key)}
	}
	if s.props == nil {
		s.props = make(map[string]any)
	}
	s.props[key] = value
	return nil
}

// Getter returns the value of the named getter along with the error it
// produced, if any.
func (s *Store) Getter(name string) (any, error) {
	node, ok := s.getters[name]
	if !ok {
		return nil, fmt.Errorf("dinia: store %q has no getter %q", s.id, name)
	}
	return node.load()
}

// GetterSource returns the derived value backing the named getter.
func (s *Store) GetterSource(name string) (reactive.Derived, bool) {
	node, ok := s.getters[name]
	if !ok {
		return nil, false
	}
	return node.source, true
}

// Getters returns the getter names in sorted order.
func (s *Store) Getters() []string {
	return sortedNames(s.getters)
}

// Action returns the bound action name, or nil. The returned function keeps
// acting on s wherever it is called from.
func (s *Store) Action(name string) ActionFunc {
	if fn, ok := s.props[name].(ActionFunc); ok {
		return fn
	}
	return s.actions[name]
}

// Actions returns the action names in sorted order.
func (s *Store) Actions() []string {
	return sortedNames(s.actions)
}

// Call runs the named action. Plugin properties holding functions shadow
// actions with the same name.
func (s *Store) Call(name string, args ...any) (any, error) {
	if prop, ok := s.props[name]; ok {
		if fn, ok := asActionFunc(prop); ok {
			return fn(args...)
		}
	}
	fn, ok := s.actions[name]
	if !ok {
		return nil, fmt.Errorf("dinia: store %q has no action %q", s.id, name)
	}
	return fn(args...)
}

// Props returns a copy of the plain and plugin provided properties.
func (s *Store) Props() map[string]any {
	out := make(map[string]any, len(s.props))
	for key, value := range s.props {
		out[key] = value
	}
	return out
}

// Patch deep merges partial into the state: nested objects are merged key by
// key, slices and other values are replaced. Subscribers are notified once
// with a patch object mutation carrying partial.
func (s *Store) Patch(partial map[string]any) {
	s.runPatch(MutationPatchObject, partial, func() {
		s.state.Merge(partial)
	})
}

// PatchFunc runs fn against the live state and notifies subscribers once with
// a patch function mutation.
func (s *Store) PatchFunc(fn func(state *reactive.Map)) {
	if fn == nil {
		return
	}
	s.runPatch(MutationPatchFunction, nil, func() {
		fn(s.state)
	})
}

// Reset restores the initial state. Options stores evaluate State again;
// setup stores need WithReset. A "$reset" property set by a plugin replaces
// the built in behavior.
func (s *Store) Reset() error {
	switch override := s.props["$reset"].(type) {
	case func():
		override()
		return nil
	case func() error:
		return override()
	}
	if s.reset == nil {
		return &NotSupportedError{StoreID: s.id, Operation: "Reset on a setup store created without WithReset"}
	}
	return s.reset()
}

// Dispose stops the store getters and watchers, drops its subscribers and
// action listeners and removes it from the container. The state stays in the
// container root state so a new instance picks it up. Calling Dispose again
// is a no-op.
func (s *Store) Dispose() {
	if s.disposed {
		return
	}
	s.container.unregister(s)
	s.markDisposed()
	s.scope.Stop()
}

// Disposed reports whether Dispose was called.
func (s *Store) Disposed() bool {
	return s.disposed
}

func (s *Store) markDisposed() {
	if s.disposed {
		return
	}
	s.disposed = true
	if s.stopObserving != nil {
		s.stopObserving()
		s.stopObserving = nil
	}
	for _, sub := range s.subscriptions {
		sub.removed = true
	}
	s.subscriptions = nil
	for _, l := range s.listeners {
		l.removed = true
	}
	s.listeners = nil
}

func sortedNames[V any](values map[string]V) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
