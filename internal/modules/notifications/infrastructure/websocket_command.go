package infrastructure

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"notification-service/internal/modules/notifications/domain"
)

// CommandHandler reacts to one inbound protocol frame from a client.
type CommandHandler func(ctx context.Context, client *Client, frame domain.Frame)

type CommandProcessor struct {
	hub             *Hub
	handlers        map[string]CommandHandler
	fallback        CommandHandler
	fallbackTimeout time.Duration
}

func NewCommandProcessor(hub *Hub, fallback CommandHandler) *CommandProcessor {
	processor := &CommandProcessor{
		hub:             hub,
		handlers:        make(map[string]CommandHandler),
		fallback:        fallback,
		fallbackTimeout: 10 * time.Second,
	}
	processor.Register(domain.EventPing, processor.handlePing)
	return processor
}

func (p *CommandProcessor) Register(event string, handler CommandHandler) {
	if handler == nil {
		return
	}
	key := normalizeEvent(event)
	if key == "" {
		return
	}
	p.handlers[key] = handler
}

func (p *CommandProcessor) Process(client *Client, frame domain.Frame) {
	if client == nil {
		return
	}

	event := normalizeEvent(frame.Event)
	if event == "" {
		return
	}

	if handler, ok := p.handlers[event]; ok {
		handler(context.Background(), client, frame)
		return
	}

	if p.fallback == nil {
		slog.Debug("ws frame ignored", slog.String("connectionId", client.connectionID), slog.String("userId", client.UserID()), slog.String("event", event))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.fallbackTimeout)
	go func() {
		defer cancel()
		p.fallback(ctx, client, frame)
	}()
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ domain.Frame) {
	client.SendEvent(domain.EventPong, map[string]any{"timestamp": time.Now().UTC()})
}

func normalizeEvent(event string) string {
	return strings.ToLower(strings.TrimSpace(event))
}
