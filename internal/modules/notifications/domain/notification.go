package domain

import (
	"encoding/json"
	"time"
)

// NotificationType discriminates the notification union sent to clients.
type NotificationType string

const (
	NotificationTaskCreated  NotificationType = "task.created"
	NotificationTaskUpdated  NotificationType = "task.updated"
	NotificationTaskDeleted  NotificationType = "task.deleted"
	NotificationTaskAssigned NotificationType = "task.assigned"
)

// Notification is a per-user realtime message derived from one task event.
// Its id is generated at mapping time and is unrelated to the source eventId.
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Timestamp    time.Time        `json:"timestamp"`
	TargetUserID string           `json:"userId"`
	Message      string           `json:"message"`
	Read         bool             `json:"read"`
	Data         any              `json:"data"`
}

// TaskCreatedData is the payload of a task.created notification.
type TaskCreatedData struct {
	TaskID     string `json:"taskId"`
	TaskTitle  string `json:"taskTitle"`
	CreatedBy  string `json:"createdBy"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// TaskUpdatedData is the payload of a task.updated notification.
type TaskUpdatedData struct {
	TaskID        string   `json:"taskId"`
	TaskTitle     string   `json:"taskTitle"`
	UpdatedBy     string   `json:"updatedBy"`
	UpdatedFields []string `json:"updatedFields"`
}

// TaskDeletedData is the payload of a task.deleted notification.
type TaskDeletedData struct {
	TaskID    string `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
	DeletedBy string `json:"deletedBy"`
}

// TaskAssignedData is the payload of a task.assigned notification.
type TaskAssignedData struct {
	TaskID    string `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
}

// Realtime protocol events exchanged over the notifications websocket.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventNotification  = "notification"
	EventPing          = "ping"
	EventPong          = "pong"
	EventError         = "error"
)

// Frame is the JSON envelope of every realtime protocol message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame builds the wire bytes for a protocol event with the given payload.
func EncodeFrame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: payload})
}
