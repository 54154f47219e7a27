package infrastructure

import (
	"context"
	"log/slog"

	"notification-service/internal/modules/notifications/application/port"
)

// HandlerRegistry dispatches received broker message bodies to the handler
// registered for their topic.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, topic string, payload []byte) error {
	if handler, ok := r.handlers[topic]; ok {
		return handler.Handle(ctx, payload)
	}
	slog.Debug("no handler registered for topic", slog.String("topic", topic))
	return nil
}
