package dinia

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-dinia/internal/hydrate"
	"github.com/goliatone/go-dinia/reactive"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Container owns the root state of a set of stores, the scope their watchers
// and getters live in, the plugins applied to them and the registry that keeps
// one store per id.
//
// A container and its stores belong to one goroutine at a time. Server hosts
// create one container per request and carry it in the request context.
type Container struct {
	id  uuid.UUID
	cfg containerConfig

	mu       sync.Mutex
	state    *reactive.Map
	scope    *reactive.Scope
	queue    *reactive.Queue
	plugins  []Plugin
	pending  []Plugin
	stores   map[string]*Store
	building map[string]bool
	app      App

	evalOnce  sync.Once
	evaluator Evaluator
	evalErr   error
}

// New creates a container with an empty root state.
func New(opts ...Option) *Container {
	cfg := applyOptions(opts)
	c := &Container{
		id:       uuid.New(),
		cfg:      cfg,
		state:    reactive.NewMap(nil),
		scope:    reactive.NewScope(),
		queue:    reactive.NewQueue(),
		stores:   make(map[string]*Store),
		building: make(map[string]bool),
	}
	return c
}

// ID returns the container identifier.
func (c *Container) ID() uuid.UUID {
	return c.id
}

// Logger returns the diagnostics logger.
func (c *Container) Logger() *zap.Logger {
	return c.cfg.logger
}

// Testing reports whether the container was created in testing mode.
func (c *Container) Testing() bool {
	return c != nil && c.cfg.testing
}

// Install attaches the container to app, provides it under ContainerKey,
// activates it and applies plugins registered before installation. A nil app
// installs into a fresh HostApp.
func (c *Container) Install(app App) *Container {
	if app == nil {
		app = NewHostApp()
	}
	c.mu.Lock()
	c.app = app
	c.plugins = append(c.plugins, c.pending...)
	c.pending = nil
	c.mu.Unlock()

	app.Provide(ContainerKey, c)
	SetActive(c)
	return c
}

// Installed reports whether Install was called since creation or the last
// Dispose.
func (c *Container) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app != nil
}

// App returns the host app, nil before Install.
func (c *Container) App() App {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app
}

// Use registers plugin for stores created from now on. Before Install the
// plugin is queued and applied on install, in registration order.
func (c *Container) Use(plugin Plugin) *Container {
	if plugin == nil {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.app == nil {
		c.pending = append(c.pending, plugin)
		return c
	}
	c.plugins = append(c.plugins, plugin)
	return c
}

// State returns the root state: one nested map per store id.
//
// Writing another store's entry through the root map works but bypasses that
// store's API and is not supported.
func (c *Container) State() *reactive.Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Store returns the registered store for id.
func (c *Container) Store(id string) (*Store, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stores[id]
	return s, ok
}

// Has reports whether a store is registered for id.
func (c *Container) Has(id string) bool {
	_, ok := c.Store(id)
	return ok
}

// Stores returns the registered store ids in sorted order.
func (c *Container) Stores() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.stores))
	for id := range c.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flush runs queued subscription callbacks and returns how many jobs ran.
func (c *Container) Flush() int {
	return c.queue.Flush()
}

// Dispatch queues job for the next Flush. It is safe to call from any
// goroutine and is the way background work hands results back to the
// container goroutine.
func (c *Container) Dispatch(job func()) {
	if job == nil {
		return
	}
	c.queue.Schedule(job)
}

// Wait flushes the container until t settles or ctx is done and returns the
// task result. It is how the container goroutine awaits an async action,
// whose hooks run on Flush.
func (c *Container) Wait(ctx context.Context, t *Task) (any, error) {
	if t == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ready := c.queue.Ready()
	for {
		c.Flush()
		if t.Settled() {
			return t.Result()
		}
		select {
		case <-t.Done():
			return t.Result()
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Dispose stops every store scope, forgets stores and plugins, resets the
// root state and detaches the container from its app. The container can be
// installed and used again afterwards.
func (c *Container) Dispose() {
	c.mu.Lock()
	scope := c.scope
	stores := c.stores
	c.scope = reactive.NewScope()
	c.stores = make(map[string]*Store)
	c.building = make(map[string]bool)
	c.plugins = nil
	c.pending = nil
	c.state = reactive.NewMap(nil)
	c.app = nil
	c.mu.Unlock()

	for _, s := range stores {
		s.markDisposed()
	}
	scope.Stop()
	c.queue.Clear()
}

// MarshalState encodes the root state as JSON.
func (c *Container) MarshalState() ([]byte, error) {
	return json.Marshal(c.State())
}

// HydrateState assigns serialized root state. Existing store entries are
// updated in place, with decoded values converted back to the Go types they
// replace; other ids are added and picked up by stores created later.
func (c *Container) HydrateState(data []byte) error {
	root, err := hydrate.RootState(data)
	if err != nil {
		return fmt.Errorf("dinia: hydrate state: %w", err)
	}
	state := c.State()
	for _, id := range sortedIDs(root) {
		if existing, ok := state.Child(id); ok {
			existing.Assign(reshapeState(root[id], existing.Snapshot()))
			continue
		}
		state.Set(id, root[id])
	}
	return nil
}

func (c *Container) currentScope() *reactive.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// reserve returns the registered store for id, or marks id as being built
// and returns the plugins to apply to it.
func (c *Container) reserve(id string) (*Store, []Plugin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stores[id]; ok {
		return s, nil, nil
	}
	if c.building[id] {
		return nil, nil, configErr(id, ErrCircularStore)
	}
	c.building[id] = true
	return nil, append([]Plugin(nil), c.plugins...), nil
}

func (c *Container) register(s *Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.building, s.id)
	c.stores[s.id] = s
}

func (c *Container) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.building, id)
}

func (c *Container) unregister(s *Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.stores[s.id]; ok && current == s {
		delete(c.stores, s.id)
	}
}

func (c *Container) warn(msg string, fields ...zap.Field) {
	if !c.cfg.warnings {
		return
	}
	c.cfg.logger.Warn(msg, fields...)
}

func sortedIDs(root map[string]map[string]any) []string {
	ids := make([]string, 0, len(root))
	for id := range root {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
