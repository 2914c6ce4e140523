package reactive

import "strings"

// Op identifies the kind of change carried by an Event.
type Op string

const (
	// OpSet replaces an existing value.
	OpSet Op = "set"
	// OpAdd introduces a new key.
	OpAdd Op = "add"
	// OpDelete removes a key.
	OpDelete Op = "delete"
)

// Event describes one change. Path is relative to the observed source; it is
// empty for cells that hold a single value.
type Event struct {
	Path []string
	Op   Op
	Old  any
	New  any
}

// Key joins the event path with dots.
func (e Event) Key() string {
	return strings.Join(e.Path, ".")
}

func (e Event) prefixed(key string) Event {
	path := make([]string, 0, len(e.Path)+1)
	path = append(path, key)
	path = append(path, e.Path...)
	e.Path = path
	return e
}

// Source is anything that can be observed for changes.
type Source interface {
	// Version increases every time the source (or anything nested in it)
	// changes.
	Version() uint64
	// Observe registers fn for every change and returns a cancel function.
	Observe(fn func(Event)) (cancel func())
}

// Cell is a readable and writable single-value source.
type Cell interface {
	Source
	Load() any
	Store(value any) error
}

// Derived is a read-only cached source that can be stopped.
type Derived interface {
	Source
	Load() any
	Stop()
}

type observer struct {
	fn      func(Event)
	removed bool
}

type observerList struct {
	items []*observer
}

func (l *observerList) add(fn func(Event)) func() {
	o := &observer{fn: fn}
	l.items = append(l.items, o)
	return func() {
		if o.removed {
			return
		}
		o.removed = true
		l.compact()
	}
}

func (l *observerList) notify(e Event) {
	if len(l.items) == 0 {
		return
	}
	items := append([]*observer(nil), l.items...)
	for _, o := range items {
		if !o.removed {
			o.fn(e)
		}
	}
}

func (l *observerList) compact() {
	kept := l.items[:0]
	for _, o := range l.items {
		if !o.removed {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
}

func (l *observerList) len() int {
	return len(l.items)
}

func (l *observerList) clear() {
	for _, o := range l.items {
		o.removed = true
	}
	l.items = nil
}
