package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-dinia/pkg/activity"
	"github.com/goliatone/go-dinia/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsActionEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildActionEvent(activity.ActionEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		UserID:     "not-a-uuid",
		StoreID:    "cart",
		Action:     "checkout",
		Channel:    "stores",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected invalid user id to map to uuid.Nil, got %s", record.UserID)
	}
	if record.Verb != activity.VerbActionCompleted || record.ObjectType != activity.ObjectTypeAction || record.ObjectID != "cart.checkout" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "stores" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	if record.Data["action"] != "checkout" {
		t.Fatalf("expected action data, got %v", record.Data["action"])
	}
}

func TestHookNotifyFiltersVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Verbs: []string{activity.VerbActionFailed}}

	mutation := activity.BuildMutationEvent(activity.MutationEventInput{StoreID: "cart"})
	failed := activity.BuildActionEvent(activity.ActionEventInput{StoreID: "cart", Action: "pay", Err: errors.New("declined")})

	_ = hook.Notify(context.Background(), mutation)
	_ = hook.Notify(context.Background(), failed)

	if len(sink.records) != 1 || sink.records[0].Verb != activity.VerbActionFailed {
		t.Fatalf("expected only the failed action to be recorded, got %+v", sink.records)
	}
}

func TestHookNotifySkipsInvalidEvents(t *testing.T) {
	sink := &recordingSink{}
	_ = usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.BuildMutationEvent(activity.MutationEventInput{StoreID: "cart"}))
	if err == nil || err.Error() != "sink down" {
		t.Fatalf("expected sink error, got %v", err)
	}
}
