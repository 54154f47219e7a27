package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MapEvent derives the per-user notifications for one task event. Every
// recipient gets an independent Notification instance with its own id so read
// state never leaks between users. An event whose type matches no variant is a
// programming error and is reported instead of silently dropped.
func MapEvent(ev TaskEvent) ([]Notification, error) {
	switch e := ev.(type) {
	case *TaskCreatedEvent:
		return mapCreated(e), nil
	case *TaskUpdatedEvent:
		return mapUpdated(e), nil
	case *TaskDeletedEvent:
		return mapDeleted(e), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEventType, ev)
	}
}

func mapCreated(e *TaskCreatedEvent) []Notification {
	creator := newNotification(NotificationTaskCreated, e.Task.CreatedByID,
		fmt.Sprintf("New task %q has been created", e.Task.Title),
		TaskCreatedData{
			TaskID:     e.Task.ID,
			TaskTitle:  e.Task.Title,
			CreatedBy:  e.Task.CreatedByID,
			AssignedTo: e.Task.AssignedToID,
		})

	notifications := []Notification{creator}
	if e.Task.AssignedToID != "" && e.Task.AssignedToID != e.Task.CreatedByID {
		assignee := creator
		assignee.ID = uuid.NewString()
		assignee.TargetUserID = e.Task.AssignedToID
		assignee.Message = fmt.Sprintf("You have been assigned to task %q", e.Task.Title)
		notifications = append(notifications, assignee)
	}
	return notifications
}

func mapUpdated(e *TaskUpdatedEvent) []Notification {
	taskTitle := e.BeforeTitle()
	if taskTitle == "" {
		taskTitle = "Task"
	}
	if before, after := e.BeforeTitle(), e.AfterTitle(); before != "" && after != "" && before != after {
		taskTitle = fmt.Sprintf(" (Title changed from %q to %q)", before, after)
	}

	generic := newNotification(NotificationTaskUpdated, e.UserID,
		fmt.Sprintf("Task has been updated (%s)", strings.Join(e.UpdatedFields, ", ")),
		TaskUpdatedData{
			TaskID:        e.TaskID,
			TaskTitle:     taskTitle,
			UpdatedBy:     e.UserID,
			UpdatedFields: e.UpdatedFields,
		})

	notifications := []Notification{generic}
	switch before, after := e.BeforeAssignee(), e.AfterAssignee(); {
	case before == "" && after != "":
		assigned := newNotification(NotificationTaskAssigned, after,
			fmt.Sprintf("Task %q has been assigned to you", e.AfterTitle()),
			TaskAssignedData{TaskID: e.TaskID, TaskTitle: e.AfterTitle()})
		notifications = append(notifications, assigned)
	case before != "" && after == "":
		// The previous assignee is told about the update too. Routing kept
		// from the upstream service that defined this behavior.
		unassigned := generic
		unassigned.ID = uuid.NewString()
		unassigned.TargetUserID = before
		notifications = append(notifications, unassigned)
	}
	return notifications
}

func mapDeleted(e *TaskDeletedEvent) []Notification {
	actor := newNotification(NotificationTaskDeleted, e.UserID,
		fmt.Sprintf("Task %q has been deleted", e.Task.Title),
		TaskDeletedData{TaskID: e.TaskID, TaskTitle: e.Task.Title, DeletedBy: e.UserID})

	notifications := []Notification{actor}
	if e.AssignedToID != "" {
		assignee := actor
		assignee.ID = uuid.NewString()
		assignee.TargetUserID = e.AssignedToID
		notifications = append(notifications, assignee)
	}
	return notifications
}

func newNotification(t NotificationType, target, message string, data any) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Type:         t,
		Timestamp:    time.Now().UTC(),
		TargetUserID: target,
		Message:      message,
		Data:         data,
	}
}
