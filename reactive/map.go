package reactive

import (
	"encoding/json"
	"sort"
)

// Map is a reactive object tree. Nested map[string]any values are wrapped into
// child Maps, and cells stored as values stay linked: reading the key returns
// the cell value and writing the key writes through to the cell. Changes
// anywhere in the tree reach the observers of every ancestor with the full
// relative path.
type Map struct {
	entries   map[string]any
	links     map[string]func()
	version   uint64
	observers observerList
}

// NewMap builds a reactive map from init. init itself is not retained.
func NewMap(init map[string]any) *Map {
	m := &Map{
		entries: make(map[string]any, len(init)),
		links:   make(map[string]func()),
	}
	for key, value := range init {
		m.put(key, value)
	}
	return m
}

func (m *Map) ensure() {
	if m.entries == nil {
		m.entries = make(map[string]any)
	}
	if m.links == nil {
		m.links = make(map[string]func())
	}
}

func (m *Map) put(key string, value any) {
	m.ensure()
	if cancel, ok := m.links[key]; ok {
		cancel()
		delete(m.links, key)
	}
	if plain, ok := value.(map[string]any); ok {
		value = NewMap(plain)
	}
	m.entries[key] = value
	if source, ok := value.(Source); ok {
		m.links[key] = source.Observe(func(e Event) {
			m.bubble(key, e)
		})
	}
}

func (m *Map) bubble(key string, e Event) {
	m.version++
	m.observers.notify(e.prefixed(key))
}

// Get returns the value stored under key. Cells and derived values are
// unwrapped; nested objects are returned as *Map.
func (m *Map) Get(key string) (any, bool) {
	raw, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return unwrap(raw), true
}

// Value is Get without the presence flag.
func (m *Map) Value(key string) any {
	v, _ := m.Get(key)
	return v
}

// Child returns the nested map stored under key.
func (m *Map) Child(key string) (*Map, bool) {
	child, ok := m.entries[key].(*Map)
	return child, ok
}

// Raw returns the stored entry without unwrapping cells.
func (m *Map) Raw(key string) (any, bool) {
	raw, ok := m.entries[key]
	return raw, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// Lookup walks nested maps following path.
func (m *Map) Lookup(path ...string) (any, bool) {
	current := m
	for i, key := range path {
		value, ok := current.Get(key)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return value, true
		}
		next, ok := value.(*Map)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Set stores value under key. When the key holds a cell and value is not a
// source, the value is written into the cell; if the cell rejects it the entry
// is replaced. A plain map set over a child map replaces the child contents in
// place, so the child keeps its identity. Setting an equal comparable value is
// a no-op.
func (m *Map) Set(key string, value any) {
	current, exists := m.entries[key]
	if exists {
		if child, ok := current.(*Map); ok {
			if plain, ok := value.(map[string]any); ok {
				child.Replace(plain)
				return
			}
		}
		if cell, ok := current.(Cell); ok {
			if _, incoming := value.(Source); !incoming {
				if err := cell.Store(value); err == nil {
					return
				}
			}
		}
		if _, isSource := current.(Source); !isSource && sameValue(current, value) {
			return
		}
	}
	var old any
	if exists {
		old = unwrap(current)
	}
	m.put(key, value)
	op := OpSet
	if !exists {
		op = OpAdd
	}
	m.version++
	m.observers.notify(Event{Path: []string{key}, Op: op, Old: old, New: unwrap(m.entries[key])})
}

// Delete removes key.
func (m *Map) Delete(key string) {
	current, exists := m.entries[key]
	if !exists {
		return
	}
	if cancel, ok := m.links[key]; ok {
		cancel()
		delete(m.links, key)
	}
	delete(m.entries, key)
	m.version++
	m.observers.notify(Event{Path: []string{key}, Op: OpDelete, Old: unwrap(current)})
}

// Merge deep-merges partial into the map: nested objects are merged key by key
// into existing child maps, every other value replaces the current one.
func (m *Map) Merge(partial map[string]any) {
	for _, key := range sortedKeys(partial) {
		value := partial[key]
		if nested, ok := value.(map[string]any); ok {
			if child, ok := m.entries[key].(*Map); ok {
				child.Merge(nested)
				continue
			}
		}
		m.Set(key, value)
	}
}

// Assign sets every key of values, leaving other keys untouched.
func (m *Map) Assign(values map[string]any) {
	for _, key := range sortedKeys(values) {
		m.Set(key, values[key])
	}
}

// Replace makes the map hold exactly values: missing keys are deleted and the
// others are set.
func (m *Map) Replace(values map[string]any) {
	for _, key := range sortedKeys(m.entries) {
		if _, keep := values[key]; !keep {
			m.Delete(key)
		}
	}
	m.Assign(values)
}

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	return sortedKeys(m.entries)
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Snapshot returns a deep plain copy: cells and derived values are unwrapped,
// nested maps become map[string]any and slices are copied.
func (m *Map) Snapshot() map[string]any {
	out := make(map[string]any, len(m.entries))
	for key, raw := range m.entries {
		out[key] = snapshotValue(unwrap(raw))
	}
	return out
}

// Version implements Source.
func (m *Map) Version() uint64 {
	return m.version
}

// Observe implements Source. fn receives changes from the whole subtree.
func (m *Map) Observe(fn func(Event)) func() {
	return m.observers.add(fn)
}

// MarshalJSON encodes the snapshot.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// UnmarshalJSON assigns the decoded object onto the map.
func (m *Map) UnmarshalJSON(data []byte) error {
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	m.ensure()
	m.Assign(decoded)
	return nil
}

func unwrap(raw any) any {
	switch typed := raw.(type) {
	case *Map:
		return typed
	case Cell:
		return typed.Load()
	case Derived:
		return typed.Load()
	default:
		return raw
	}
}

func snapshotValue(value any) any {
	switch typed := value.(type) {
	case *Map:
		return typed.Snapshot()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = snapshotValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = snapshotValue(item)
		}
		return out
	default:
		return value
	}
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
