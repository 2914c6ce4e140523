package dinia

// PluginContext is what a plugin receives for each new store. Options is the
// Options value of an options store or the SetupOptions of a setup store.
type PluginContext struct {
	Container *Container
	App       App
	Store     *Store
	Options   any
}

// Properties are the values a plugin adds to a store.
type Properties map[string]any

// Plugin extends every store created by a container after it was registered.
// Plugins run once per store, in registration order, before the store is
// returned. Returned properties naming a state key write that state; other
// keys become store properties that shadow getters and actions.
type Plugin func(ctx PluginContext) (Properties, error)

func (s *Store) extend(props Properties) {
	for _, key := range sortedNames(props) {
		value := props[key]
		if s.state.Has(key) {
			s.state.Set(key, value)
			continue
		}
		if s.props == nil {
			s.props = make(map[string]any)
		}
		if fn, ok := asActionFunc(value); ok {
			if _, isAction := s.actions[key]; isAction {
				s.props[key] = fn
				continue
			}
		}
		s.props[key] = value
	}
}
