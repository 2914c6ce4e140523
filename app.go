package dinia

import "sync"

// App is the host application a container is installed into. It provides the
// dependency injection the container relies on to be found from request or
// component scoped code.
type App interface {
	Provide(key, value any)
	Inject(key any) (any, bool)
}

// HostApp is a minimal App backed by a map.
type HostApp struct {
	mu     sync.RWMutex
	values map[any]any
}

// NewHostApp returns an empty host application.
func NewHostApp() *HostApp {
	return &HostApp{values: make(map[any]any)}
}

// Provide implements App.
func (a *HostApp) Provide(key, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.values == nil {
		a.values = make(map[any]any)
	}
	a.values[key] = value
}

// Inject implements App.
func (a *HostApp) Inject(key any) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, ok := a.values[key]
	return value, ok
}
