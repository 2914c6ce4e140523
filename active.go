package dinia

import (
	"context"
	"sync/atomic"
)

type containerKey struct{}

type appKey struct{}

// ContainerKey is the key a container is provided under when installed into
// an App.
var ContainerKey any = containerKey{}

var fallback atomic.Pointer[Container]

// SetActive sets the fallback container used when nothing more specific can
// be resolved, and returns c. Passing nil clears it.
//
// The fallback is process wide. Hosts serving concurrent requests must carry
// a per request container in the context instead (see Provide).
func SetActive(c *Container) *Container {
	fallback.Store(c)
	return c
}

// Active resolves the container for ctx: a testing fallback first, then the
// container carried by ctx, then the container injected into the App carried
// by ctx, then the fallback. It returns nil when none is available.
func Active(ctx context.Context) *Container {
	current := fallback.Load()
	if current != nil && current.Testing() {
		return current
	}
	if ctx != nil {
		if c, ok := FromContext(ctx); ok {
			return c
		}
		if app, ok := ctx.Value(appKey{}).(App); ok && app != nil {
			if value, ok := app.Inject(ContainerKey); ok {
				if c, ok := value.(*Container); ok && c != nil {
					return c
				}
			}
		}
	}
	return current
}

// Provide returns a context carrying c.
func Provide(ctx context.Context, c *Container) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, containerKey{}, c)
}

// FromContext returns the container carried by ctx.
func FromContext(ctx context.Context) (*Container, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(containerKey{}).(*Container)
	return c, ok && c != nil
}

// WithApp returns a context carrying app. Stores resolved from that context
// use the container installed into app.
func WithApp(ctx context.Context, app App) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey{}, app)
}
