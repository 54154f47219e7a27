package domain

import (
	"errors"
	"testing"
	"time"
)

func header(eventType EventType, userID, assignedTo string) EventHeader {
	return EventHeader{
		EventID:      "ev-test",
		EventType:    eventType,
		Timestamp:    time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC),
		UserID:       userID,
		AssignedToID: assignedTo,
	}
}

func assertDistinctIDs(t *testing.T, notifications []Notification) {
	t.Helper()
	seen := make(map[string]struct{}, len(notifications))
	for _, n := range notifications {
		if n.ID == "" {
			t.Fatal("notification with empty id")
		}
		if _, dup := seen[n.ID]; dup {
			t.Fatalf("duplicate notification id %s", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
}

func TestMapEventCreatedWithDistinctAssignee(t *testing.T) {
	t.Parallel()

	ev := &TaskCreatedEvent{
		EventHeader: header(EventTaskCreated, "u-creator", "u-assignee"),
		Task: TaskSnapshot{
			ID:           "t-1",
			Title:        "Ship release",
			Status:       "OPEN",
			AssignedToID: "u-assignee",
			CreatedByID:  "u-creator",
		},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	assertDistinctIDs(t, notifications)

	creator, assignee := notifications[0], notifications[1]
	if creator.TargetUserID != "u-creator" {
		t.Fatalf("unexpected creator target: %s", creator.TargetUserID)
	}
	if creator.Message != `New task "Ship release" has been created` {
		t.Fatalf("unexpected creator message: %s", creator.Message)
	}
	if assignee.TargetUserID != "u-assignee" {
		t.Fatalf("unexpected assignee target: %s", assignee.TargetUserID)
	}
	if assignee.Message != `You have been assigned to task "Ship release"` {
		t.Fatalf("unexpected assignee message: %s", assignee.Message)
	}
	if creator.Type != NotificationTaskCreated || assignee.Type != NotificationTaskCreated {
		t.Fatalf("unexpected types: %s, %s", creator.Type, assignee.Type)
	}
	if creator.Read || assignee.Read {
		t.Fatal("notifications must start unread")
	}
	data, ok := creator.Data.(TaskCreatedData)
	if !ok {
		t.Fatalf("unexpected data payload: %T", creator.Data)
	}
	if data.TaskID != "t-1" || data.AssignedTo != "u-assignee" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestMapEventCreatedSelfAssignedYieldsOne(t *testing.T) {
	t.Parallel()

	ev := &TaskCreatedEvent{
		EventHeader: header(EventTaskCreated, "u-1", "u-1"),
		Task:        TaskSnapshot{ID: "t-1", Title: "Solo", Status: "OPEN", AssignedToID: "u-1", CreatedByID: "u-1"},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].TargetUserID != "u-1" {
		t.Fatalf("unexpected target: %s", notifications[0].TargetUserID)
	}
}

func TestMapEventUpdatedNoAssigneeChange(t *testing.T) {
	t.Parallel()

	ev := &TaskUpdatedEvent{
		EventHeader:   header(EventTaskUpdated, "u-actor", ""),
		TaskID:        "t-1",
		Changes:       FieldChanges{Before: map[string]any{"status": "OPEN"}, After: map[string]any{"status": "DONE"}},
		UpdatedFields: []string{"status"},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.TargetUserID != "u-actor" {
		t.Fatalf("unexpected target: %s", n.TargetUserID)
	}
	if n.Message != "Task has been updated (status)" {
		t.Fatalf("unexpected message: %s", n.Message)
	}
	if n.Type != NotificationTaskUpdated {
		t.Fatalf("unexpected type: %s", n.Type)
	}
}

func TestMapEventUpdatedAssigneeAdded(t *testing.T) {
	t.Parallel()

	ev := &TaskUpdatedEvent{
		EventHeader: header(EventTaskUpdated, "U1", ""),
		TaskID:      "T1",
		Changes: FieldChanges{
			Before: map[string]any{"assignedTo": nil},
			After:  map[string]any{"assignedTo": "U2", "title": "Quarterly report"},
		},
		UpdatedFields: []string{"assignedTo"},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	assertDistinctIDs(t, notifications)

	generic, assigned := notifications[0], notifications[1]
	if generic.TargetUserID != "U1" || generic.Type != NotificationTaskUpdated {
		t.Fatalf("unexpected generic notification: target=%s type=%s", generic.TargetUserID, generic.Type)
	}
	if assigned.TargetUserID != "U2" || assigned.Type != NotificationTaskAssigned {
		t.Fatalf("unexpected assigned notification: target=%s type=%s", assigned.TargetUserID, assigned.Type)
	}
	if assigned.Message != `Task "Quarterly report" has been assigned to you` {
		t.Fatalf("unexpected assigned message: %s", assigned.Message)
	}
}

func TestMapEventUpdatedAssigneeRemovedNotifiesPreviousAssignee(t *testing.T) {
	t.Parallel()

	ev := &TaskUpdatedEvent{
		EventHeader: header(EventTaskUpdated, "u-actor", ""),
		TaskID:      "t-1",
		Changes: FieldChanges{
			Before: map[string]any{"assignedTo": "u-old"},
			After:  map[string]any{"assignedTo": nil},
		},
		UpdatedFields: []string{"assignedTo"},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	assertDistinctIDs(t, notifications)
	if notifications[0].TargetUserID != "u-actor" {
		t.Fatalf("unexpected actor target: %s", notifications[0].TargetUserID)
	}
	if notifications[1].TargetUserID != "u-old" {
		t.Fatalf("unexpected previous assignee target: %s", notifications[1].TargetUserID)
	}
	if notifications[0].Message != notifications[1].Message {
		t.Fatalf("previous assignee should receive the generic update message")
	}
}

func TestMapEventUpdatedTitleChangeAnnotation(t *testing.T) {
	t.Parallel()

	ev := &TaskUpdatedEvent{
		EventHeader: header(EventTaskUpdated, "u-1", ""),
		TaskID:      "t-1",
		Changes: FieldChanges{
			Before: map[string]any{"title": "Old name"},
			After:  map[string]any{"title": "New name"},
		},
		UpdatedFields: []string{"title"},
	}

	notifications, err := MapEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := notifications[0].Data.(TaskUpdatedData)
	if !ok {
		t.Fatalf("unexpected data payload: %T", notifications[0].Data)
	}
	if data.TaskTitle != ` (Title changed from "Old name" to "New name")` {
		t.Fatalf("unexpected title annotation: %s", data.TaskTitle)
	}
}

func TestMapEventDeleted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		assignedTo string
		want       int
	}{
		{"no assignee", "", 1},
		{"with assignee", "u-assignee", 2},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := &TaskDeletedEvent{
				EventHeader: header(EventTaskDeleted, "u-actor", tc.assignedTo),
				TaskID:      "t-1",
				Task:        TaskSnapshot{ID: "t-1", Title: "Doomed", Status: "DONE"},
			}
			notifications, err := MapEvent(ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(notifications) != tc.want {
				t.Fatalf("expected %d notifications, got %d", tc.want, len(notifications))
			}
			assertDistinctIDs(t, notifications)
			if notifications[0].TargetUserID != "u-actor" {
				t.Fatalf("unexpected actor target: %s", notifications[0].TargetUserID)
			}
			if notifications[0].Message != `Task "Doomed" has been deleted` {
				t.Fatalf("unexpected message: %s", notifications[0].Message)
			}
			if tc.want == 2 && notifications[1].TargetUserID != "u-assignee" {
				t.Fatalf("unexpected assignee target: %s", notifications[1].TargetUserID)
			}
		})
	}
}

type unknownEvent struct{ EventHeader }

func TestMapEventUnknownVariant(t *testing.T) {
	t.Parallel()

	_, err := MapEvent(&unknownEvent{})
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}
