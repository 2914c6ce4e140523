package dinia

import (
	"testing"

	"github.com/goliatone/go-dinia/reactive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// newTestContainer returns an installed container that is deactivated when
// the test ends.
func newTestContainer(t *testing.T, opts ...Option) *Container {
	t.Helper()
	c := New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	c.Install(NewHostApp())
	t.Cleanup(func() {
		SetActive(nil)
		c.Dispose()
	})
	return c
}

// observedContainer records warnings in the returned logs.
func observedContainer(t *testing.T, opts ...Option) (*Container, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	c := newTestContainer(t, append([]Option{WithLogger(zap.New(core))}, opts...)...)
	return c, logs
}

func mustUse(t *testing.T, def *Definition, c *Container) *Store {
	t.Helper()
	s, err := def.UseIn(c)
	if err != nil {
		t.Fatalf("use %q: %v", def.ID(), err)
	}
	return s
}

func counterOptions() Options {
	return Options{
		State: func() any {
			return map[string]any{"count": 0, "name": "counter"}
		},
		Getters: map[string]Getter{
			"double": GetterFunc(func(state *reactive.Map, _ *Store) any {
				n, _ := state.Value("count").(int)
				return n * 2
			}),
		},
		Actions: map[string]Action{
			"increment": func(s *Store, args ...any) (any, error) {
				step := 1
				if len(args) > 0 {
					step, _ = args[0].(int)
				}
				n, _ := s.State().Value("count").(int)
				s.State().Set("count", n+step)
				return n + step, nil
			},
		},
	}
}
