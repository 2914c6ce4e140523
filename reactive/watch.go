package reactive

import (
	"fmt"
	"reflect"
	"strings"
)

// Flush selects when watch callbacks run.
type Flush int

const (
	// FlushPre queues the callback for the next flush. It is the default.
	FlushPre Flush = iota
	// FlushPost queues the callback after the regular jobs of the next flush.
	FlushPost
	// FlushSync runs the callback inline with every change.
	FlushSync
)

func (f Flush) String() string {
	switch f {
	case FlushPre:
		return "pre"
	case FlushPost:
		return "post"
	case FlushSync:
		return "sync"
	default:
		return fmt.Sprintf("flush(%d)", int(f))
	}
}

// ParseFlush parses "pre", "post" or "sync". The empty string is FlushPre.
func ParseFlush(value string) (Flush, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "pre":
		return FlushPre, nil
	case "post":
		return FlushPost, nil
	case "sync":
		return FlushSync, nil
	default:
		return FlushPre, fmt.Errorf("reactive: unknown flush mode %q", value)
	}
}

// WatchOption configures Watch and WatchValue.
type WatchOption func(*watchConfig)

type watchConfig struct {
	flush     Flush
	scheduler Scheduler
	scope     *Scope
}

// WithFlush sets the flush mode.
func WithFlush(flush Flush) WatchOption {
	return func(cfg *watchConfig) {
		cfg.flush = flush
	}
}

// WithScheduler sets the scheduler used by queued flush modes. Without one,
// every mode behaves as FlushSync.
func WithScheduler(s Scheduler) WatchOption {
	return func(cfg *watchConfig) {
		cfg.scheduler = s
	}
}

// InScope stops the watcher when scope stops.
func InScope(scope *Scope) WatchOption {
	return func(cfg *watchConfig) {
		cfg.scope = scope
	}
}

// Watch observes src and hands collected events to cb. Queued modes coalesce
// every event raised before the flush into one call. The returned function
// stops the watcher; pending events are dropped.
func Watch(src Source, cb func([]Event), opts ...WatchOption) (stop func()) {
	cfg := watchConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		pending   []Event
		scheduled bool
		stopped   bool
	)

	deliver := func() {
		scheduled = false
		batch := pending
		pending = nil
		if stopped || len(batch) == 0 {
			return
		}
		cb(batch)
	}

	cancel := src.Observe(func(e Event) {
		if stopped {
			return
		}
		if cfg.flush == FlushSync || cfg.scheduler == nil {
			cb([]Event{e})
			return
		}
		pending = append(pending, e)
		if scheduled {
			return
		}
		scheduled = true
		if post, ok := cfg.scheduler.(PostScheduler); ok && cfg.flush == FlushPost {
			post.SchedulePost(deliver)
			return
		}
		cfg.scheduler.Schedule(deliver)
	})

	unregister := func() {}
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		pending = nil
		cancel()
		unregister()
	}

	if cfg.scope != nil {
		unregister = cfg.scope.OnStop(stop)
	}
	return stop
}

// WatchValue calls cb with the new and previous value of src whenever the
// value changes. Maps are compared by identity, so every change fires.
func WatchValue(src Source, cb func(newValue, oldValue any), opts ...WatchOption) (stop func()) {
	old := snapshotValue(currentValue(src))
	return Watch(src, func([]Event) {
		next := currentValue(src)
		if _, isMap := src.(*Map); !isMap && reflect.DeepEqual(next, old) {
			return
		}
		prev := old
		old = snapshotValue(next)
		cb(next, prev)
	}, opts...)
}

func currentValue(src Source) any {
	switch typed := src.(type) {
	case *Map:
		return typed
	case interface{ Load() any }:
		return typed.Load()
	default:
		return nil
	}
}
