package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType discriminates the task event union on the wire.
type EventType string

const (
	EventTaskCreated EventType = "task.created"
	EventTaskUpdated EventType = "task.updated"
	EventTaskDeleted EventType = "task.deleted"
)

// ErrUnknownEventType is returned when an envelope carries an eventType no
// variant matches. Producer and consumer share this package, so hitting it at
// runtime means a deployment skew, not a user error.
var ErrUnknownEventType = errors.New("unknown task event type")

// EventHeader carries the fields common to every task event envelope.
type EventHeader struct {
	EventID      string    `json:"eventId"`
	EventType    EventType `json:"eventType"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"userId"`
	AssignedToID string    `json:"assignedToId,omitempty"`
}

// Header implements TaskEvent for every variant embedding EventHeader.
func (h EventHeader) Header() EventHeader { return h }

// TaskEvent is the decoded form of a broker message produced by the task service.
type TaskEvent interface {
	Header() EventHeader
}

// TaskSnapshot mirrors the task entity fields the producer embeds in events.
type TaskSnapshot struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority,omitempty"`
	AssignedToID string     `json:"assignedToId,omitempty"`
	CreatedByID  string     `json:"createdById,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt,omitzero"`
}

// TaskCreatedEvent carries the full snapshot of the freshly created task.
type TaskCreatedEvent struct {
	EventHeader
	Task TaskSnapshot `json:"task"`
}

// FieldChanges holds the before/after values of the fields touched by an update.
type FieldChanges struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

func (c FieldChanges) beforeString(field string) string { return stringValue(c.Before[field]) }
func (c FieldChanges) afterString(field string) string  { return stringValue(c.After[field]) }

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// TaskUpdatedEvent carries the field diff of an update.
type TaskUpdatedEvent struct {
	EventHeader
	TaskID        string       `json:"taskId"`
	Changes       FieldChanges `json:"changes"`
	UpdatedFields []string     `json:"updatedFields"`
}

// BeforeAssignee returns the assignee user id prior to the update, if any.
func (e *TaskUpdatedEvent) BeforeAssignee() string { return e.Changes.beforeString("assignedTo") }

// AfterAssignee returns the assignee user id after the update, if any.
func (e *TaskUpdatedEvent) AfterAssignee() string { return e.Changes.afterString("assignedTo") }

// BeforeTitle returns the task title prior to the update, if it changed.
func (e *TaskUpdatedEvent) BeforeTitle() string { return e.Changes.beforeString("title") }

// AfterTitle returns the task title after the update, if it changed.
func (e *TaskUpdatedEvent) AfterTitle() string { return e.Changes.afterString("title") }

// TaskDeletedEvent carries a minimal snapshot of the removed task.
type TaskDeletedEvent struct {
	EventHeader
	TaskID string       `json:"taskId"`
	Task   TaskSnapshot `json:"task"`
}

// DecodeTaskEvent parses a broker message body into its concrete event variant.
func DecodeTaskEvent(data []byte) (TaskEvent, error) {
	var probe struct {
		EventType EventType `json:"eventType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch probe.EventType {
	case EventTaskCreated:
		var ev TaskCreatedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.EventType, err)
		}
		return &ev, nil
	case EventTaskUpdated:
		var ev TaskUpdatedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.EventType, err)
		}
		return &ev, nil
	case EventTaskDeleted:
		var ev TaskDeletedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.EventType, err)
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, probe.EventType)
	}
}
