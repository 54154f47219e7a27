package broker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"notification-service/internal/modules/notifications/infrastructure"
)

// StartConsumers opens one shared subscription per topic and dispatches every
// received message body to the handler registry. The subscription name is
// derived from the prefix so each topic gets its own consumer group, matching
// the one-subscription-per-topic layout of the producing side.
func StartConsumers(
	ctx context.Context,
	consumer *Consumer,
	registry *infrastructure.HandlerRegistry,
	subscriptionPrefix string,
	topics []string,
) {
	for _, topic := range topics {
		name := subscriptionName(subscriptionPrefix, topic)
		err := consumer.Subscribe(ctx, topic, name, func(ctx context.Context, msg kafka.Message) error {
			return registry.Dispatch(ctx, msg.Topic, msg.Value)
		})
		if err != nil {
			slog.Error("broker subscribe failed", slog.String("topic", topic), slog.Any("error", err))
		}
	}
}

func subscriptionName(prefix, topic string) string {
	short := topic
	if idx := strings.LastIndex(short, "."); idx >= 0 {
		short = short[idx+1:]
	}
	return prefix + "-" + short
}
