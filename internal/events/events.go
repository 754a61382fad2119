package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a moderation lifecycle event.
type EventType string

// Moderation lifecycle events.
const (
	TaskCreated    EventType = "task_created"
	TaskAssigned   EventType = "task_assigned"
	TaskResolved   EventType = "task_resolved"
	TaskRejected   EventType = "task_rejected"
	TaskUnresolved EventType = "task_unresolved"
	TasksSwept     EventType = "tasks_swept"
)

// ModerationEvent records a committed change to the moderator task queue.
type ModerationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// TaskID is the affected task, zero for events concerning many tasks
	TaskID int64 `json:"task_id,omitempty"`

	// ActorID is the user whose request caused the change, uuid.Nil for
	// changes the system makes on its own
	ActorID uuid.UUID `json:"actor_id"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// OccurredAt is the service clock time of the change
	OccurredAt time.Time `json:"occurred_at"`
}

// TaskPayload describes the state of a task after a lifecycle change.
type TaskPayload struct {
	TaskType       string     `json:"task_type"`
	SubjectBarcode *string    `json:"subject_barcode,omitempty"`
	SubjectOsmUID  *string    `json:"subject_osm_uid,omitempty"`
	Lang           *string    `json:"lang,omitempty"`
	Assignee       *uuid.UUID `json:"assignee,omitempty"`
	ResolverAction *string    `json:"resolver_action,omitempty"`
}

// SweepPayload reports a retention sweep that removed tasks.
type SweepPayload struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *ModerationEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewModerationEvent creates a ModerationEvent with a fresh ID. A nil payload
// leaves Payload empty.
func NewModerationEvent(
	eventType EventType,
	taskID int64,
	actorID uuid.UUID,
	payload any,
	occurredAt time.Time,
) (*ModerationEvent, error) {
	event := &ModerationEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		ActorID:    actorID,
		OccurredAt: occurredAt.UTC(),
	}

	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Payload = payloadBytes
	}

	return event, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ModerationEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ModerationEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *ModerationEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ModerationEvent) error {
	return f(ctx, event)
}
