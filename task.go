package dinia

import (
	"context"
	"fmt"
	"sync"
)

// Task is the result of an asynchronous action. It settles once, either
// resolved with a value or rejected with an error.
type Task struct {
	done      chan struct{}
	mu        sync.Mutex
	settled   bool
	value     any
	err       error
	callbacks []func(any, error)
}

// NewTask returns a pending task.
func NewTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and settles the task with its result. A panic
// in fn rejects the task.
func Go(fn func() (any, error)) *Task {
	t := NewTask()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Reject(panicError(r))
			}
		}()
		value, err := fn()
		if err != nil {
			t.Reject(err)
			return
		}
		t.Resolve(value)
	}()
	return t
}

// Resolved returns a task resolved with value.
func Resolved(value any) *Task {
	t := NewTask()
	t.Resolve(value)
	return t
}

// Rejected returns a task rejected with err.
func Rejected(err error) *Task {
	t := NewTask()
	t.Reject(err)
	return t
}

// Resolve settles the task with value. It reports false if the task was
// already settled.
func (t *Task) Resolve(value any) bool {
	return t.settle(value, nil)
}

// Reject settles the task with err. It reports false if the task was already
// settled.
func (t *Task) Reject(err error) bool {
	if err == nil {
		err = fmt.Errorf("dinia: task rejected without an error")
	}
	return t.settle(nil, err)
}

func (t *Task) settle(value any, err error) bool {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return false
	}
	t.settled = true
	t.value = value
	t.err = err
	callbacks := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	return true
}

// Then registers fn to run once the task settles, on the settling goroutine.
// On a settled task fn runs immediately.
func (t *Task) Then(fn func(value any, err error)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	if !t.settled {
		t.callbacks = append(t.callbacks, fn)
		t.mu.Unlock()
		return
	}
	value, err := t.value, t.err
	t.mu.Unlock()
	fn(value, err)
}

// Done is closed once the task settles.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the task settles or ctx is done. Tasks returned by
// actions settle during a container Flush, so the container goroutine awaits
// them with Container.Wait instead.
func (t *Task) Await(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled value and error. On a pending task it returns
// nil, nil.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Settled reports whether the task has settled.
func (t *Task) Settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("dinia: panic: %v", r)
}
