package activity

import (
	"strings"
	"time"
)

// Verbs and object types of store events.
const (
	VerbStoreMutated    = "store.mutated"
	VerbActionCompleted = "store.action.completed"
	VerbActionFailed    = "store.action.failed"

	ObjectTypeStore  = "store"
	ObjectTypeAction = "store.action"
)

// MutationEventInput describes a state mutation.
type MutationEventInput struct {
	ActorID     string
	UserID      string
	TenantID    string
	Channel     string
	ContainerID string
	StoreID     string
	// MutationType is "direct", "patch object" or "patch function".
	MutationType string
	// Paths are the dotted paths of the changed keys.
	Paths      []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActionEventInput describes a finished action call.
type ActionEventInput struct {
	ActorID      string
	UserID       string
	TenantID     string
	Channel      string
	ContainerID  string
	StoreID      string
	Action       string
	InvocationID string
	Duration     time.Duration
	Err          error
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildMutationEvent constructs the event for a store mutation. The object id
// is the store id.
func BuildMutationEvent(input MutationEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.MutationType != "" {
		metadata = ensureMetadata(metadata)
		metadata["mutation_type"] = input.MutationType
	}
	if len(input.Paths) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["paths"] = append([]string{}, input.Paths...)
	}
	if input.ContainerID != "" {
		metadata = ensureMetadata(metadata)
		metadata["container_id"] = input.ContainerID
	}

	return Event{
		Verb:       VerbStoreMutated,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeStore,
		ObjectID:   strings.TrimSpace(input.StoreID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildActionEvent constructs the completed or failed event for an action
// call, depending on input.Err. The object id is "<store>.<action>".
func BuildActionEvent(input ActionEventInput) Event {
	verb := VerbActionCompleted
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["duration_ms"] = input.Duration.Milliseconds()
	if input.Err != nil {
		verb = VerbActionFailed
		metadata["error"] = input.Err.Error()
	}
	if input.InvocationID != "" {
		metadata["invocation_id"] = input.InvocationID
	}
	if input.ContainerID != "" {
		metadata["container_id"] = input.ContainerID
	}

	storeID := strings.TrimSpace(input.StoreID)
	action := strings.TrimSpace(input.Action)
	objectID := storeID
	if storeID != "" && action != "" {
		objectID = storeID + "." + action
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeAction,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: action,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
