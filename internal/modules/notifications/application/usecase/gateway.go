package usecase

import (
	"context"
	"log/slog"
	"time"

	"notification-service/internal/modules/notifications/application/port"
	"notification-service/internal/modules/notifications/domain"
)

// GatewayUseCase routes notifications and protocol events to the connections
// that should receive them, across instances when the fanout bridge is up.
type GatewayUseCase struct {
	presence port.PresenceRegistry
	pusher   port.LocalPusher
	bridge   port.FanoutBridge
}

func NewGatewayUseCase(presence port.PresenceRegistry, pusher port.LocalPusher, bridge port.FanoutBridge) *GatewayUseCase {
	return &GatewayUseCase{presence: presence, pusher: pusher, bridge: bridge}
}

// RegisterConnection records an authenticated connection in the presence
// registry.
func (uc *GatewayUseCase) RegisterConnection(ctx context.Context, userID, connectionID string) error {
	return uc.presence.AddConnection(ctx, userID, connectionID)
}

// UnregisterConnection removes a closed connection from the presence registry.
func (uc *GatewayUseCase) UnregisterConnection(ctx context.Context, connectionID string) error {
	return uc.presence.RemoveConnection(ctx, connectionID)
}

// DeliverToUser pushes one notification to every connection of its target
// user. Offline targets are dropped silently. When the bridge is connected
// the frame travels through it so connections on other instances are reached;
// a bridge failure degrades to local-only delivery instead of failing.
func (uc *GatewayUseCase) DeliverToUser(ctx context.Context, n *domain.Notification) error {
	online, err := uc.presence.IsUserOnline(ctx, n.TargetUserID)
	if err != nil {
		return err
	}
	if !online {
		slog.Debug("notification dropped, user offline", slog.String("userId", n.TargetUserID), slog.String("notificationId", n.ID))
		return nil
	}

	frame, err := domain.EncodeFrame(domain.EventNotification, n)
	if err != nil {
		return err
	}

	connections, err := uc.presence.Connections(ctx, n.TargetUserID)
	if err != nil {
		return err
	}
	if len(connections) == 0 {
		slog.Debug("notification dropped, no connections", slog.String("userId", n.TargetUserID), slog.String("notificationId", n.ID))
		return nil
	}

	if uc.bridge != nil && uc.bridge.Connected() {
		if err := uc.bridge.PublishFrame(ctx, connections, frame); err == nil {
			return nil
		} else {
			slog.Warn("fanout publish failed, delivering locally", slog.String("userId", n.TargetUserID), slog.Any("error", err))
		}
	}
	uc.pusher.PushToConnections(connections, frame)
	return nil
}

// BroadcastAll pushes a protocol event to every authenticated connection on
// every instance, or on this instance alone when the bridge is down.
func (uc *GatewayUseCase) BroadcastAll(ctx context.Context, event string, data any) error {
	frame, err := domain.EncodeFrame(event, data)
	if err != nil {
		return err
	}
	if uc.bridge != nil && uc.bridge.Connected() {
		if err := uc.bridge.PublishFrame(ctx, nil, frame); err == nil {
			return nil
		} else {
			slog.Warn("fanout broadcast failed, delivering locally", slog.Any("error", err))
		}
	}
	uc.pusher.PushToAll(frame)
	return nil
}

// Stats reports the number of distinct online users and the time of the
// snapshot.
func (uc *GatewayUseCase) Stats(ctx context.Context) (map[string]any, error) {
	count, err := uc.presence.CountOnlineUsers(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"connectedUsers": count,
		"timestamp":      time.Now().UTC(),
	}, nil
}
