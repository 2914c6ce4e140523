package dinia

import (
	"context"
	"time"

	"github.com/goliatone/go-dinia/pkg/activity"
	"github.com/goliatone/go-dinia/reactive"
	"go.uber.org/zap"
)

// ActivityPlugin reports every mutation and every finished action of each
// store to emitter. Mutations are reported synchronously, one event per
// mutation. Emit failures are logged and never reach the store.
func ActivityPlugin(emitter *activity.Emitter) Plugin {
	return func(pc PluginContext) (Properties, error) {
		if !emitter.Enabled() {
			return nil, nil
		}
		s := pc.Store
		containerID := pc.Container.ID().String()
		logger := pc.Container.Logger()

		emit := func(event activity.Event) {
			if err := emitter.Emit(context.Background(), event); err != nil {
				logger.Warn("dinia: activity emit failed",
					zap.String("store", s.ID()),
					zap.String("verb", event.Verb),
					zap.Error(err),
				)
			}
		}

		s.Subscribe(func(m Mutation, _ *reactive.Map) {
			emit(activity.BuildMutationEvent(activity.MutationEventInput{
				ContainerID:  containerID,
				StoreID:      m.StoreID,
				MutationType: string(m.Type),
				Paths:        mutationPaths(m.Events),
			}))
		}, WithFlush(reactive.FlushSync), Detached())

		s.OnAction(func(call *ActionContext) {
			start := time.Now()
			report := func(err error) {
				emit(activity.BuildActionEvent(activity.ActionEventInput{
					ContainerID:  containerID,
					StoreID:      call.Store.ID(),
					Action:       call.Name,
					InvocationID: call.ID.String(),
					Duration:     time.Since(start),
					Err:          err,
				}))
			}
			call.After(func(any) { report(nil) })
			call.OnError(report)
		}, Detached())

		return nil, nil
	}
}

func mutationPaths(events []reactive.Event) []string {
	seen := make(map[string]bool, len(events))
	paths := make([]string, 0, len(events))
	for _, e := range events {
		key := e.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		paths = append(paths, key)
	}
	return paths
}
