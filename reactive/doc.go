// Package reactive provides the small set of reactivity primitives the store
// container is built on: reactive maps, ref cells, cached derived values,
// disposable scopes and watchers.
//
// The primitives are not safe for concurrent use. A tree of reactive values
// belongs to one goroutine at a time, usually the goroutine that owns the
// container. Work finishing on another goroutine should hand its mutation back
// through a Scheduler (see Queue) instead of writing directly.
//
// # Sources
//
// Every reactive value implements Source: a monotonic Version and an Observe
// hook. Map, Ref, KeyRef and Computed are sources.
//
//	count := reactive.NewRef(0)
//	double := reactive.NewComputed(func() int { return count.Get() * 2 }, count)
//	count.Set(2)
//	double.Get() // 4, recomputed once
//
// # Watching
//
// Watch observes a source and delivers the collected events either inline
// (FlushSync) or through a Scheduler on the next flush (FlushPre, FlushPost):
//
//	queue := reactive.NewQueue()
//	stop := reactive.Watch(state, func(events []reactive.Event) {
//	    fmt.Println(len(events))
//	}, reactive.WithScheduler(queue))
//	defer stop()
//	queue.Flush()
package reactive
