package dinia

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionContext describes one action call to OnAction listeners. Listeners
// attach After and OnError hooks; exactly one of the two hook lists runs per
// call, once.
type ActionContext struct {
	ID    uuid.UUID
	Store *Store
	Name  string
	Args  []any

	mu      sync.Mutex
	after   []func(any)
	onError []func(error)
	settled bool
}

// After registers fn to run with the result once the action returns, or once
// its task resolves.
func (c *ActionContext) After(fn func(result any)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.after = append(c.after, fn)
}

// OnError registers fn to run when the action fails, panics, or its task is
// rejected.
func (c *ActionContext) OnError(fn func(err error)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, fn)
}

func (c *ActionContext) isSettled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

func (c *ActionContext) succeed(result any) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	hooks := c.after
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(result)
	}
}

func (c *ActionContext) fail(err error) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	hooks := c.onError
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
}

// ActionListener is called before every action runs.
type ActionListener func(call *ActionContext)

type actionListener struct {
	fn      ActionListener
	removed bool
}

// OnAction registers listener for every action call on the store and returns
// a function that removes it. Detached and OwnedBy apply as for Subscribe.
func (s *Store) OnAction(listener ActionListener, opts ...SubscribeOption) func() {
	if listener == nil || s.disposed {
		return func() {}
	}
	cfg := s.subscribeConfig(opts)
	l := &actionListener{fn: listener}
	s.listeners = append(s.listeners, l)

	return cfg.bind(func() {
		if l.removed {
			return
		}
		l.removed = true
		kept := s.listeners[:0]
		for _, existing := range s.listeners {
			if existing != l {
				kept = append(kept, existing)
			}
		}
		s.listeners = kept
	})
}

// wrapAction binds fn to s. Errors, panics and task rejections are reported to
// listeners and reach the caller unchanged. When fn returns a *Task the caller
// receives a task that settles after the hooks ran; the hooks run on the next
// container Flush, never on the goroutine that settled the task. Every call is
// logged once, before its hooks run.
func (s *Store) wrapAction(name string, fn func(args ...any) (any, error)) ActionFunc {
	return func(args ...any) (result any, err error) {
		call := &ActionContext{ID: uuid.New(), Store: s, Name: name, Args: args}
		for _, l := range append([]*actionListener(nil), s.listeners...) {
			if !l.removed {
				l.fn(call)
			}
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				perr := panicError(r)
				if !call.isSettled() {
					s.logAction(name, start, perr)
					call.fail(perr)
				}
				panic(r)
			}
		}()

		result, err = fn(args...)
		if err != nil {
			s.logAction(name, start, err)
			call.fail(err)
			return result, err
		}

		if task, ok := result.(*Task); ok && task != nil {
			next := NewTask()
			task.Then(func(value any, taskErr error) {
				s.container.Dispatch(func() {
					s.settleAsync(call, start, next, value, taskErr)
				})
			})
			return next, nil
		}

		s.logAction(name, start, nil)
		call.succeed(result)
		return result, nil
	}
}

// settleAsync runs on the container goroutine once the task returned by an
// action settled. next settles even when a hook panics.
func (s *Store) settleAsync(call *ActionContext, start time.Time, next *Task, value any, err error) {
	s.logAction(call.Name, start, err)
	defer func() {
		if err != nil {
			next.Reject(err)
			return
		}
		next.Resolve(value)
	}()
	if err != nil {
		call.fail(err)
		return
	}
	call.succeed(value)
}

func (s *Store) logAction(name string, start time.Time, err error) {
	s.container.cfg.actionLogger.LogAction(ActionLogEvent{
		Store:    s.id,
		Action:   name,
		Duration: time.Since(start),
		Err:      err,
	})
}

// asActionFunc adapts the function shapes accepted as actions.
func asActionFunc(value any) (ActionFunc, bool) {
	switch fn := value.(type) {
	case ActionFunc:
		return fn, fn != nil
	case func(...any) (any, error):
		return fn, fn != nil
	case func(...any) any:
		if fn == nil {
			return nil, false
		}
		return func(args ...any) (any, error) { return fn(args...), nil }, true
	case func() (any, error):
		if fn == nil {
			return nil, false
		}
		return func(...any) (any, error) { return fn() }, true
	case func() any:
		if fn == nil {
			return nil, false
		}
		return func(...any) (any, error) { return fn(), nil }, true
	case func() error:
		if fn == nil {
			return nil, false
		}
		return func(...any) (any, error) { return nil, fn() }, true
	case func():
		if fn == nil {
			return nil, false
		}
		return func(...any) (any, error) { fn(); return nil, nil }, true
	default:
		return nil, false
	}
}
