package dinia

import "github.com/goliatone/go-dinia/reactive"

// MutationType tells subscribers how the state changed.
type MutationType string

const (
	// MutationDirect is a write through the state map or a store setter.
	MutationDirect MutationType = "direct"
	// MutationPatchObject is a Patch call.
	MutationPatchObject MutationType = "patch object"
	// MutationPatchFunction is a PatchFunc call, SetState or Reset.
	MutationPatchFunction MutationType = "patch function"
)

// Mutation describes a state change delivered to subscribers. Events holds
// every change covered by the mutation; Payload is the partial state of a
// patch object mutation.
type Mutation struct {
	Type    MutationType
	StoreID string
	Events  []reactive.Event
	Payload map[string]any
}

// SubscriptionCallback receives mutations together with the live state.
type SubscriptionCallback func(m Mutation, state *reactive.Map)

// SubscribeOption configures Subscribe and OnAction.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	flush    reactive.Flush
	flushSet bool
	detached bool
	owner    *reactive.Scope
}

// WithFlush selects when subscription callbacks run. FlushSync runs them
// inline, one mutation at a time; the queued modes run on Container.Flush.
func WithFlush(flush reactive.Flush) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.flush = flush
		cfg.flushSet = true
	}
}

// OwnedBy removes the subscription when scope stops.
func OwnedBy(scope *reactive.Scope) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.owner = scope
	}
}

// Detached keeps the subscription alive until it is cancelled or the store is
// disposed, ignoring OwnedBy.
func Detached() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.detached = true
	}
}

func (s *Store) subscribeConfig(opts []SubscribeOption) subscribeConfig {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if !cfg.flushSet {
		cfg.flush = s.container.cfg.flush
	}
	return cfg
}

// bind ties cancel to the owner scope unless the registration is detached.
func (cfg subscribeConfig) bind(cancel func()) func() {
	if cfg.detached || cfg.owner == nil {
		return cancel
	}
	unregister := cfg.owner.OnStop(cancel)
	return func() {
		unregister()
		cancel()
	}
}

type subscription struct {
	cb        SubscriptionCallback
	flush     reactive.Flush
	pending   []Mutation
	scheduled bool
	removed   bool
}

// Subscribe registers cb for every state mutation and returns a function
// that cancels it. Patches reach cb exactly once; direct writes reach it once
// per change with FlushSync and coalesced per flush otherwise.
func (s *Store) Subscribe(cb SubscriptionCallback, opts ...SubscribeOption) func() {
	if cb == nil || s.disposed {
		return func() {}
	}
	cfg := s.subscribeConfig(opts)
	sub := &subscription{cb: cb, flush: cfg.flush}
	s.subscriptions = append(s.subscriptions, sub)

	return cfg.bind(func() {
		if sub.removed {
			return
		}
		sub.removed = true
		sub.pending = nil
		kept := s.subscriptions[:0]
		for _, existing := range s.subscriptions {
			if existing != sub {
				kept = append(kept, existing)
			}
		}
		s.subscriptions = kept
	})
}

func (s *Store) observe(e reactive.Event) {
	if s.patchDepth > 0 {
		s.patchEvents = append(s.patchEvents, e)
		return
	}
	s.notify(Mutation{Type: MutationDirect, StoreID: s.id, Events: []reactive.Event{e}})
}

func (s *Store) runPatch(kind MutationType, payload map[string]any, mutate func()) {
	s.patchDepth++
	completed := false
	defer func() {
		s.patchDepth--
		if s.patchDepth > 0 {
			return
		}
		events := s.patchEvents
		s.patchEvents = nil
		if completed {
			s.notify(Mutation{Type: kind, StoreID: s.id, Events: events, Payload: payload})
		}
	}()
	mutate()
	completed = true
}

func (s *Store) notify(m Mutation) {
	if len(s.subscriptions) == 0 {
		return
	}
	subs := append([]*subscription(nil), s.subscriptions...)
	for _, sub := range subs {
		if !sub.removed {
			s.deliver(sub, m)
		}
	}
}

func (s *Store) deliver(sub *subscription, m Mutation) {
	if sub.flush == reactive.FlushSync {
		sub.cb(m, s.state)
		return
	}

	if last := len(sub.pending) - 1; m.Type == MutationDirect && last >= 0 && sub.pending[last].Type == MutationDirect {
		sub.pending[last].Events = append(sub.pending[last].Events, m.Events...)
	} else {
		sub.pending = append(sub.pending, m)
	}
	if sub.scheduled {
		return
	}
	sub.scheduled = true

	job := func() {
		sub.scheduled = false
		batch := sub.pending
		sub.pending = nil
		for _, queued := range batch {
			if sub.removed {
				return
			}
			sub.cb(queued, s.state)
		}
	}
	if sub.flush == reactive.FlushPost {
		s.container.queue.SchedulePost(job)
		return
	}
	s.container.queue.Schedule(job)
}
