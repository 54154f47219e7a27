package handler

import (
	"context"
	"errors"
	"log/slog"

	"notification-service/internal/modules/notifications/application/port"
	"notification-service/internal/modules/notifications/domain"
)

// deliverer is the slice of the gateway usecase the handler needs.
type deliverer interface {
	DeliverToUser(ctx context.Context, n *domain.Notification) error
}

// TaskEventsHandler consumes one task topic, maps each event to its
// notifications and hands them to the gateway. Undecodable and unknown
// events are logged and dropped so the message still gets acknowledged;
// delivery failures propagate so the message is redelivered.
type TaskEventsHandler struct {
	topic   string
	gateway deliverer
}

func NewTaskEventsHandler(topic string, gateway deliverer) *TaskEventsHandler {
	return &TaskEventsHandler{topic: topic, gateway: gateway}
}

func (h *TaskEventsHandler) Topic() string { return h.topic }

func (h *TaskEventsHandler) Handle(ctx context.Context, payload []byte) error {
	event, err := domain.DecodeTaskEvent(payload)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			slog.Warn("unknown task event dropped", slog.String("topic", h.topic), slog.Any("error", err))
			return nil
		}
		slog.Warn("malformed task event dropped", slog.String("topic", h.topic), slog.Any("error", err))
		return nil
	}

	notifications, err := domain.MapEvent(event)
	if err != nil {
		slog.Warn("unmappable task event dropped", slog.String("topic", h.topic), slog.String("eventId", event.Header().EventID), slog.Any("error", err))
		return nil
	}

	for i := range notifications {
		if err := h.gateway.DeliverToUser(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	slog.Debug("task event processed",
		slog.String("topic", h.topic),
		slog.String("eventId", event.Header().EventID),
		slog.Int("notifications", len(notifications)))
	return nil
}

var _ port.TopicHandler = (*TaskEventsHandler)(nil)
