package dinia

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestGoSettlesWithResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	task := Go(func() (any, error) { return 42, nil })
	value, err := task.Await(context.Background())
	if err != nil || value != 42 {
		t.Fatalf("unexpected result %v, %v", value, err)
	}
	if !task.Settled() {
		t.Fatalf("expected a settled task")
	}
}

func TestGoRecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	task := Go(func() (any, error) { panic("broken") })
	_, err := task.Await(context.Background())
	if err == nil || err.Error() != "dinia: panic: broken" {
		t.Fatalf("expected the panic as an error, got %v", err)
	}
}

func TestTaskSettlesOnce(t *testing.T) {
	task := NewTask()
	var seen []any
	task.Then(func(value any, _ error) { seen = append(seen, value) })

	if !task.Resolve("first") {
		t.Fatalf("expected the first settle to win")
	}
	if task.Resolve("second") || task.Reject(errors.New("late")) {
		t.Fatalf("expected later settles to be ignored")
	}
	task.Then(func(value any, _ error) { seen = append(seen, value) })

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "first" {
		t.Fatalf("unexpected callbacks %v", seen)
	}
	value, err := task.Result()
	if value != "first" || err != nil {
		t.Fatalf("unexpected result %v, %v", value, err)
	}
}

func TestRejectWithoutError(t *testing.T) {
	task := NewTask()
	task.Reject(nil)
	if _, err := task.Result(); err == nil {
		t.Fatalf("expected a placeholder error")
	}
	if _, err := Rejected(context.Canceled).Result(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the rejection error, got %v", err)
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	task := NewTask()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := task.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline, got %v", err)
	}
	if task.Settled() {
		t.Fatalf("expected the task to stay pending")
	}
}

func TestAsyncActionLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	s := mustUse(t, Must(Define("loader", Options{
		Actions: map[string]Action{
			"load": func(s *Store, args ...any) (any, error) {
				container := s.Container()
				return Go(func() (any, error) {
					container.Dispatch(func() { s.State().Set("loaded", true) })
					return "ok", nil
				}), nil
			},
		},
	})), c)

	result, err := s.Call("load")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Wait(context.Background(), result.(*Task)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := s.Value("loaded"); got != true {
		t.Fatalf("expected the dispatched write, got %v", got)
	}
}
