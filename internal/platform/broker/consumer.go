package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one received broker message. Returning nil
// acknowledges the message; returning an error keeps it uncommitted and the
// consumer redelivers it to the handler after a fixed delay. Handlers decide
// what is unrecoverable: a poison message must be accepted (nil) after
// logging, or it blocks its partition.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// fetcher is the slice of kafka.Reader the receive loop depends on.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type subscription struct {
	topic  string
	name   string
	reader fetcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Consumer owns one shared subscription per (topic, subscription name) pair.
// Multiple service instances subscribing under the same name compete for
// messages, giving load-balanced at-least-once delivery.
type Consumer struct {
	brokers    []string
	retryDelay time.Duration
	newReader  func(topic, subscriptionName string) fetcher

	mu     sync.Mutex
	subs   []*subscription
	closed bool
}

var errConsumerClosed = errors.New("consumer is closed")

func NewConsumer(brokers []string) *Consumer {
	c := &Consumer{brokers: brokers, retryDelay: time.Second}
	c.newReader = func(topic, subscriptionName string) fetcher {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			GroupID:  subscriptionName,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		})
	}
	return c
}

// Subscribe opens a shared subscription on the topic and starts its receive
// loop in the background. The loop runs until Close or context cancellation.
func (c *Consumer) Subscribe(ctx context.Context, topic, subscriptionName string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConsumerClosed
	}

	reader := c.newReader(topic, subscriptionName)

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		topic:  topic,
		name:   subscriptionName,
		reader: reader,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.subs = append(c.subs, sub)

	go c.receiveLoop(subCtx, sub, handler)

	slog.Info("broker subscribed",
		slog.String("topic", topic),
		slog.String("subscription", subscriptionName))
	return nil
}

// receiveLoop pulls messages one at a time. Handler success commits the
// offset (ack); handler failure redelivers the same message after a fixed
// delay (nack). Committing any later message would advance the group offset
// past the failed one, so the loop never fetches beyond an unacknowledged
// message. Receive-level failures are also retried forever with the same
// delay: transient broker outages must never terminate the loop.
func (c *Consumer) receiveLoop(ctx context.Context, sub *subscription, handler MessageHandler) {
	defer close(sub.done)
	for {
		msg, err := sub.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("broker receive error",
				slog.String("topic", sub.topic),
				slog.String("subscription", sub.name),
				slog.Any("error", err))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for {
			err := handler(ctx, msg)
			if err == nil {
				break
			}
			slog.Warn("broker handler error, redelivering message",
				slog.String("topic", sub.topic),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
		}

		if err := sub.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("broker commit error",
				slog.String("topic", sub.topic),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err))
		}
	}
}

// Close stops every receive loop and closes the underlying readers, in that
// order. Shutdown failures are logged, never escalated.
func (c *Consumer) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.closed = true
	c.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		if err := sub.reader.Close(); err != nil {
			slog.Warn("broker subscription close error",
				slog.String("topic", sub.topic),
				slog.Any("error", err))
		}
		select {
		case <-sub.done:
		case <-time.After(5 * time.Second):
			slog.Warn("broker receive loop did not stop in time", slog.String("topic", sub.topic))
		}
	}
	slog.Info("broker consumer closed", slog.Int("subscriptions", len(subs)))
}
