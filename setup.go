package dinia

import (
	"context"

	"github.com/goliatone/go-dinia/reactive"
)

// SetupContext is handed to setup functions. Watchers and derived values
// created through it are stopped when the store is disposed.
type SetupContext struct {
	store *Store
}

// ID returns the id of the store being built.
func (sc *SetupContext) ID() string {
	return sc.store.id
}

// Container returns the container the store is being built in.
func (sc *SetupContext) Container() *Container {
	return sc.store.container
}

// Scope returns the store scope.
func (sc *SetupContext) Scope() *reactive.Scope {
	return sc.store.scope
}

// Context returns a context carrying the container, for resolving other
// stores from inside setup.
func (sc *SetupContext) Context() context.Context {
	return Provide(context.Background(), sc.store.container)
}

// Use resolves another store in the same container.
func (sc *SetupContext) Use(def *Definition) (*Store, error) {
	return def.UseIn(sc.store.container)
}

// Inject returns the value the host app provides under key, or def.
func (sc *SetupContext) Inject(key, def any) any {
	app := sc.store.container.App()
	if app == nil {
		return def
	}
	if value, ok := app.Inject(key); ok {
		return value
	}
	return def
}

// OnDispose registers fn to run when the store is disposed.
func (sc *SetupContext) OnDispose(fn func()) {
	sc.store.scope.OnStop(fn)
}

// Watch observes src until the store is disposed. Queued flush modes run on
// Container.Flush.
func (sc *SetupContext) Watch(src reactive.Source, cb func([]reactive.Event), opts ...reactive.WatchOption) func() {
	return reactive.Watch(src, cb, sc.watchOptions(opts)...)
}

// WatchValue is the value form of Watch.
func (sc *SetupContext) WatchValue(src reactive.Source, cb func(newValue, oldValue any), opts ...reactive.WatchOption) func() {
	return reactive.WatchValue(src, cb, sc.watchOptions(opts)...)
}

func (sc *SetupContext) watchOptions(opts []reactive.WatchOption) []reactive.WatchOption {
	base := []reactive.WatchOption{
		reactive.WithScheduler(sc.store.container.queue),
		reactive.WithFlush(sc.store.container.cfg.flush),
		reactive.InScope(sc.store.scope),
	}
	return append(base, opts...)
}

// Computed returns a cached value over deps that stops with the store.
func Computed[T any](sc *SetupContext, fn func() T, deps ...reactive.Source) *reactive.Computed[T] {
	c := reactive.NewComputed(fn, deps...)
	sc.store.scope.OnStop(c.Stop)
	return c
}
