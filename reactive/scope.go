package reactive

import "sync"

// Scope groups disposers so a whole subtree of watchers and derived values can
// be cancelled at once. Stopping a scope stops its children first, then runs
// its own disposers in reverse registration order.
type Scope struct {
	mu        sync.Mutex
	disposers []*disposer
	stopped   bool
}

type disposer struct {
	fn      func()
	removed bool
}

// NewScope returns an active root scope.
func NewScope() *Scope {
	return &Scope{}
}

// Child returns a scope that is stopped together with s. Stopping the child
// alone detaches it from s.
func (s *Scope) Child() *Scope {
	child := &Scope{}
	unregister := s.OnStop(child.Stop)
	child.OnStop(unregister)
	return child
}

// OnStop registers fn to run when the scope stops and returns a function that
// unregisters it. On a stopped scope fn runs immediately.
func (s *Scope) OnStop(fn func()) func() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		fn()
		return func() {}
	}
	d := &disposer{fn: fn}
	s.disposers = append(s.disposers, d)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		d.removed = true
	}
}

// Stop runs every registered disposer once.
func (s *Scope) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		if disposers[i].removed {
			continue
		}
		disposers[i].fn()
	}
}

// Active reports whether the scope has not been stopped.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}
