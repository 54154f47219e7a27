package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"notification-service/internal/modules/notifications/domain"
	"notification-service/internal/platform/broker"
)

// taskgen publishes sample task events so the notification pipeline can be
// exercised end to end without the task service running.
func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma separated kafka brokers")
	eventType := flag.String("type", "created", "event type: created, updated or deleted")
	userID := flag.String("user", "user-1", "acting user id")
	assignee := flag.String("assignee", "", "assigned user id")
	title := flag.String("title", "Sample task", "task title")
	count := flag.Int("count", 1, "number of events to publish")
	flag.Parse()

	publisher := broker.NewPublisher(splitBrokers(*brokers))
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 0; i < *count; i++ {
		event, err := buildEvent(*eventType, *userID, *assignee, *title)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build event: %v\n", err)
			os.Exit(1)
		}
		if err := publisher.PublishTaskEvent(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "publish: %v\n", err)
			os.Exit(1)
		}
		slog.Info("event published", slog.String("eventId", event.Header().EventID), slog.String("eventType", string(event.Header().EventType)))
	}
}

func buildEvent(kind, userID, assignee, title string) (domain.TaskEvent, error) {
	taskID := uuid.NewString()
	header := domain.EventHeader{
		EventID:      uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		AssignedToID: assignee,
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "created":
		header.EventType = domain.EventTaskCreated
		return &domain.TaskCreatedEvent{
			EventHeader: header,
			Task: domain.TaskSnapshot{
				ID:           taskID,
				Title:        title,
				Status:       "todo",
				AssignedToID: assignee,
				CreatedByID:  userID,
				CreatedAt:    time.Now().UTC(),
			},
		}, nil
	case "updated":
		header.EventType = domain.EventTaskUpdated
		return &domain.TaskUpdatedEvent{
			EventHeader: header,
			TaskID:      taskID,
			Changes: domain.FieldChanges{
				Before: map[string]any{"title": title},
				After:  map[string]any{"title": title + " (edited)"},
			},
			UpdatedFields: []string{"title"},
		}, nil
	case "deleted":
		header.EventType = domain.EventTaskDeleted
		return &domain.TaskDeletedEvent{
			EventHeader: header,
			TaskID:      taskID,
			Task: domain.TaskSnapshot{
				ID:          taskID,
				Title:       title,
				Status:      "done",
				CreatedByID: userID,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", kind)
	}
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
