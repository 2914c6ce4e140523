package reactive

// Computed caches the result of fn and recomputes it lazily, only after one of
// its declared dependencies changed version.
type Computed[T any] struct {
	fn        func() T
	deps      []Source
	seen      []uint64
	value     T
	valid     bool
	computing bool
	stopped   bool
	runs      int
	observers observerList
	cancels   []func()
}

// NewComputed returns a cached value over deps.
func NewComputed[T any](fn func() T, deps ...Source) *Computed[T] {
	return &Computed[T]{
		fn:   fn,
		deps: deps,
		seen: make([]uint64, len(deps)),
	}
}

// Get returns the cached value, recomputing it when stale. A re-entrant read
// during recomputation returns the previous value.
func (c *Computed[T]) Get() T {
	if c.stopped || c.computing {
		return c.value
	}
	if c.valid && !c.dirty() {
		return c.value
	}
	for i, dep := range c.deps {
		c.seen[i] = dep.Version()
	}
	c.computing = true
	defer func() { c.computing = false }()
	c.value = c.fn()
	c.valid = true
	c.runs++
	return c.value
}

func (c *Computed[T]) dirty() bool {
	for i, dep := range c.deps {
		if dep.Version() != c.seen[i] {
			return true
		}
	}
	return false
}

// Runs reports how many times fn was evaluated.
func (c *Computed[T]) Runs() int {
	return c.runs
}

// Load implements Derived.
func (c *Computed[T]) Load() any {
	return c.Get()
}

// Version implements Source.
func (c *Computed[T]) Version() uint64 {
	var sum uint64
	for _, dep := range c.deps {
		sum += dep.Version()
	}
	return sum
}

// Observe implements Source. Dependencies are observed only once the first
// observer registers.
func (c *Computed[T]) Observe(fn func(Event)) func() {
	if c.stopped {
		return func() {}
	}
	if c.cancels == nil {
		c.cancels = make([]func(), 0, len(c.deps))
		for _, dep := range c.deps {
			c.cancels = append(c.cancels, dep.Observe(func(Event) {
				c.observers.notify(Event{Op: OpSet})
			}))
		}
	}
	return c.observers.add(fn)
}

// Stop freezes the current value and detaches from dependencies.
func (c *Computed[T]) Stop() {
	if c.stopped {
		return
	}
	if !c.valid {
		c.Get()
	}
	c.stopped = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.observers.clear()
}

// Stopped reports whether Stop was called.
func (c *Computed[T]) Stopped() bool {
	return c.stopped
}
