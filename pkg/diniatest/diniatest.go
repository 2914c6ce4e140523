// Package diniatest builds containers for tests: installed, active, with
// optional initial state per store and stubbed actions.
package diniatest

import (
	"context"
	"sync"
	"testing"

	dinia "github.com/goliatone/go-dinia"
	"github.com/goliatone/go-dinia/layering"
	"github.com/goliatone/go-dinia/reactive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Options configures New.
type Options struct {
	// InitialState is deep merged into the state of each store, keyed by store
	// id, right after the store is created.
	InitialState map[string]map[string]any
	// Plugins are registered after the initial state plugin, in order.
	Plugins []dinia.Plugin
	// StubActions replaces every action with a recorder that does not run the
	// action body.
	StubActions bool
	// App hosts the container. Defaults to a new HostApp.
	App dinia.App
	// Logger defaults to a zaptest logger writing to t.
	Logger *zap.Logger
	// ContainerOptions are passed to dinia.New.
	ContainerOptions []dinia.Option
}

// Call is one recorded call of a stubbed action.
type Call struct {
	Store  string
	Action string
	Args   []any
}

// Container is a testing container together with the calls its stubbed
// actions received.
type Container struct {
	*dinia.Container

	mu    sync.Mutex
	calls []Call
}

// New returns an installed testing container and makes it active. The
// container is disposed and deactivated when t finishes.
func New(t testing.TB, opts Options) *Container {
	t.Helper()

	logger := opts.Logger
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	containerOpts := append([]dinia.Option{dinia.WithLogger(logger)}, opts.ContainerOptions...)
	containerOpts = append(containerOpts, dinia.WithTestingMode())

	tc := &Container{Container: dinia.New(containerOpts...)}
	if len(opts.InitialState) > 0 {
		tc.Use(initialState(opts.InitialState))
	}
	for _, plugin := range opts.Plugins {
		tc.Use(plugin)
	}
	if opts.StubActions {
		tc.Use(tc.stubActions)
	}

	app := opts.App
	if app == nil {
		app = dinia.NewHostApp()
	}
	tc.Install(app)

	t.Cleanup(func() {
		if dinia.Active(context.Background()) == tc.Container {
			dinia.SetActive(nil)
		}
		tc.Dispose()
	})
	return tc
}

// Calls returns the recorded calls of action on store, in call order.
func (tc *Container) Calls(store, action string) []Call {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	var out []Call
	for _, call := range tc.calls {
		if call.Store == store && call.Action == action {
			out = append(out, call)
		}
	}
	return out
}

// AllCalls returns every recorded call in call order.
func (tc *Container) AllCalls() []Call {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]Call(nil), tc.calls...)
}

// ResetCalls forgets the recorded calls.
func (tc *Container) ResetCalls() {
	tc.mu.Lock()
	tc.calls = nil
	tc.mu.Unlock()
}

func (tc *Container) record(call Call) {
	tc.mu.Lock()
	tc.calls = append(tc.calls, call)
	tc.mu.Unlock()
}

func (tc *Container) stubActions(pc dinia.PluginContext) (dinia.Properties, error) {
	store := pc.Store.ID()
	props := make(dinia.Properties)
	for _, name := range pc.Store.Actions() {
		action := name
		props[action] = dinia.ActionFunc(func(args ...any) (any, error) {
			tc.record(Call{Store: store, Action: action, Args: append([]any(nil), args...)})
			return nil, nil
		})
	}
	return props, nil
}

func initialState(states map[string]map[string]any) dinia.Plugin {
	return func(pc dinia.PluginContext) (dinia.Properties, error) {
		partial, ok := states[pc.Store.ID()]
		if !ok || len(partial) == 0 {
			return nil, nil
		}
		merged := layering.Merge(partial, pc.Store.State().Snapshot())
		pc.Store.PatchFunc(func(state *reactive.Map) {
			state.Replace(merged)
		})
		return nil, nil
	}
}
