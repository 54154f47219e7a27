package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"notification-service/internal/modules/notifications/domain"
)

// messageWriter is the slice of kafka.Writer the publisher depends on.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher serializes task events and publishes them to the topic the router
// assigns to their type. Envelope and routing are shared with the consumer;
// a divergence between the two sides is a silent message-loss bug.
type Publisher struct {
	newWriter func(topic string) messageWriter

	mu      sync.Mutex
	writers map[string]messageWriter
	closed  bool
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		newWriter: func(topic string) messageWriter {
			return &kafka.Writer{
				Addr:         kafka.TCP(brokers...),
				Topic:        topic,
				Balancer:     &kafka.LeastBytes{},
				BatchTimeout: 10 * time.Millisecond,
				RequiredAcks: kafka.RequireOne,
			}
		},
		writers: make(map[string]messageWriter),
	}
}

// PublishTaskEvent routes the event to its topic and publishes the JSON
// envelope. The event id keys the message and, with eventType and userId, is
// duplicated into message headers so downstream tooling can filter without
// deserializing the body.
func (p *Publisher) PublishTaskEvent(ctx context.Context, event domain.TaskEvent) error {
	h := event.Header()
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", h.EventID, err)
	}

	topic := domain.RouteTopic(h.EventType)
	writer, err := p.writer(topic)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(h.EventID),
		Value: value,
		Time:  h.Timestamp,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(h.EventType)},
			{Key: "userId", Value: []byte(h.UserID)},
			{Key: "eventId", Value: []byte(h.EventID)},
		},
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s to %s: %w", h.EventID, topic, err)
	}
	slog.Info("published task event",
		slog.String("eventType", string(h.EventType)),
		slog.String("eventId", h.EventID),
		slog.String("topic", topic))
	return nil
}

// PublishTaskEvents publishes a batch, grouping messages per routed topic so
// each writer flushes them in one produce request.
func (p *Publisher) PublishTaskEvents(ctx context.Context, events []domain.TaskEvent) error {
	byTopic := make(map[string][]kafka.Message)
	for _, event := range events {
		h := event.Header()
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", h.EventID, err)
		}
		topic := domain.RouteTopic(h.EventType)
		byTopic[topic] = append(byTopic[topic], kafka.Message{
			Key:   []byte(h.EventID),
			Value: value,
			Time:  h.Timestamp,
			Headers: []kafka.Header{
				{Key: "eventType", Value: []byte(h.EventType)},
				{Key: "userId", Value: []byte(h.UserID)},
				{Key: "eventId", Value: []byte(h.EventID)},
			},
		})
	}

	for topic, msgs := range byTopic {
		writer, err := p.writer(topic)
		if err != nil {
			return err
		}
		if err := writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish batch to %s: %w", topic, err)
		}
	}
	slog.Info("published task event batch", slog.Int("events", len(events)))
	return nil
}

func (p *Publisher) writer(topic string) (messageWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("publisher is closed")
	}
	if w, ok := p.writers[topic]; ok {
		return w, nil
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	slog.Info("created producer", slog.String("topic", topic))
	return w, nil
}

// Close closes every per-topic writer, returning the first error seen.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		slog.Info("closed producer", slog.String("topic", topic))
	}
	return firstErr
}
