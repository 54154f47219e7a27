package port

import (
	"context"
)

// PresenceRegistry tracks which users are reachable on which realtime
// connections. Implementations must keep the forward set and the reverse
// lookup consistent and make removal idempotent.
type PresenceRegistry interface {
	AddConnection(ctx context.Context, userID, connectionID string) error
	RemoveConnection(ctx context.Context, connectionID string) error
	Connections(ctx context.Context, userID string) ([]string, error)
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	CountOnlineUsers(ctx context.Context) (int, error)
	UserByConnection(ctx context.Context, connectionID string) (string, error)
}

// LocalPusher delivers raw protocol frames to connections attached to this
// instance. Connection ids owned by other instances are silently skipped.
type LocalPusher interface {
	PushToConnections(connectionIDs []string, frame []byte)
	PushToAll(frame []byte)
}

// FanoutBridge forwards connection-targeted frames to every service instance,
// the origin included, so a frame naming a connection physically attached
// elsewhere still arrives.
type FanoutBridge interface {
	Connected() bool
	PublishFrame(ctx context.Context, connectionIDs []string, frame []byte) error
}

// TopicHandler is implemented by broker-topic handlers registered in the
// dispatch registry.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, payload []byte) error
}
