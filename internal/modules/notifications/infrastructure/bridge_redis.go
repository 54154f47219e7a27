package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"notification-service/internal/modules/notifications/application/port"
)

// FanoutChannel carries connection-targeted frames between service instances.
const FanoutChannel = "notifications:fanout"

var errBridgeNotConfigured = errors.New("fanout bridge: redis not configured")

// fanoutEnvelope is the pub/sub payload. An empty connection id list means
// the frame goes to every authenticated connection.
type fanoutEnvelope struct {
	ConnectionIDs []string        `json:"connectionIds,omitempty"`
	Frame         json.RawMessage `json:"frame"`
}

// RedisBridge relays frames across instances through a Redis pub/sub channel.
// Every instance, the publisher included, receives the frame through its own
// subscription and pushes the locally attached connections.
type RedisBridge struct {
	pub     *redis.Client
	sub     *redis.Client
	pusher  port.LocalPusher
	channel string

	connected atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}

	retryDelay time.Duration
}

func NewRedisBridge(pub, sub *redis.Client, pusher port.LocalPusher) *RedisBridge {
	return &RedisBridge{
		pub:        pub,
		sub:        sub,
		pusher:     pusher,
		channel:    FanoutChannel,
		retryDelay: time.Second,
	}
}

// Connect subscribes to the fanout channel and waits for the subscription
// confirmation before reporting the bridge as connected.
func (b *RedisBridge) Connect(ctx context.Context) error {
	if b.pub == nil || b.sub == nil {
		return errBridgeNotConfigured
	}

	pubsub := b.sub.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.connected.Store(true)

	go b.receiveLoop(loopCtx, pubsub)
	slog.Info("fanout bridge connected", slog.String("channel", b.channel))
	return nil
}

func (b *RedisBridge) receiveLoop(ctx context.Context, pubsub *redis.PubSub) {
	defer close(b.done)
	for {
		ch := pubsub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.dispatch(msg.Payload)
			}
		}

		_ = pubsub.Close()
		b.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("fanout subscription closed, reconnecting", slog.String("channel", b.channel))
		time.Sleep(b.retryDelay)

		pubsub = b.sub.Subscribe(ctx, b.channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			continue
		}
		b.connected.Store(true)
		slog.Info("fanout bridge reconnected", slog.String("channel", b.channel))
	}
}

func (b *RedisBridge) dispatch(payload string) {
	var env fanoutEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		slog.Warn("fanout envelope decode error", slog.Any("error", err))
		return
	}
	if len(env.ConnectionIDs) == 0 {
		b.pusher.PushToAll(env.Frame)
		return
	}
	b.pusher.PushToConnections(env.ConnectionIDs, env.Frame)
}

// Connected reports whether the bridge currently holds a live subscription.
func (b *RedisBridge) Connected() bool {
	return b.connected.Load()
}

// PublishFrame sends frame bytes to every instance. A nil or empty id list
// addresses all authenticated connections everywhere.
func (b *RedisBridge) PublishFrame(ctx context.Context, connectionIDs []string, frame []byte) error {
	if b.pub == nil {
		return errBridgeNotConfigured
	}
	payload, err := json.Marshal(fanoutEnvelope{ConnectionIDs: connectionIDs, Frame: frame})
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBridge) Close() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
		slog.Warn("fanout bridge close timed out")
	}
	b.connected.Store(false)
	return nil
}

var _ port.FanoutBridge = (*RedisBridge)(nil)
