package reactive

// KeyRef is a Cell view over one key of a Map. Writes go to the map, so the
// map remains the single owner of the value.
type KeyRef struct {
	m   *Map
	key string
}

// ToRef returns a cell bound to m[key].
func ToRef(m *Map, key string) *KeyRef {
	return &KeyRef{m: m, key: key}
}

// Key returns the bound key.
func (r *KeyRef) Key() string {
	return r.key
}

// Load implements Cell.
func (r *KeyRef) Load() any {
	return r.m.Value(r.key)
}

// Store implements Cell.
func (r *KeyRef) Store(value any) error {
	r.m.Set(r.key, value)
	return nil
}

// Version implements Source. It follows the owning map.
func (r *KeyRef) Version() uint64 {
	return r.m.Version()
}

// Observe implements Source. Only changes under the bound key are delivered,
// with the key stripped from the path.
func (r *KeyRef) Observe(fn func(Event)) func() {
	return r.m.Observe(func(e Event) {
		if len(e.Path) == 0 || e.Path[0] != r.key {
			return
		}
		e.Path = e.Path[1:]
		fn(e)
	})
}
