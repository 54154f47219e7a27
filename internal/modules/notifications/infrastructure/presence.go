package infrastructure

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"notification-service/internal/modules/notifications/application/port"
)

// PresenceRegistry selects between the Redis-backed store and the local
// in-memory view at call time. Writes always land in the local view as well,
// so when the store is (or becomes) unreachable every operation keeps working
// with this-instance-only scope. Store errors are logged and absorbed;
// presence must never fail delivery outright.
type PresenceRegistry struct {
	store *RedisPresence
	local *LocalPresence

	available  atomic.Bool
	probeEvery time.Duration
	probeMu    sync.Mutex
	lastProbe  time.Time
}

func NewPresenceRegistry(client *redis.Client) *PresenceRegistry {
	reg := &PresenceRegistry{
		local:      NewLocalPresence(),
		probeEvery: 30 * time.Second,
	}
	if client == nil {
		slog.Warn("presence store not configured, using in-memory registry only")
		return reg
	}
	reg.store = NewRedisPresence(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reg.store.ping(ctx); err != nil {
		slog.Warn("presence store unreachable at startup, falling back to in-memory registry", slog.Any("error", err))
	} else {
		reg.available.Store(true)
		slog.Info("presence store connected")
	}
	return reg
}

// storeAvailable reports whether the Redis path should be used, re-probing a
// downed store at most once per probe interval.
func (g *PresenceRegistry) storeAvailable(ctx context.Context) bool {
	if g.store == nil {
		return false
	}
	if g.available.Load() {
		return true
	}

	g.probeMu.Lock()
	defer g.probeMu.Unlock()
	if g.available.Load() {
		return true
	}
	if time.Since(g.lastProbe) < g.probeEvery {
		return false
	}
	g.lastProbe = time.Now()
	if err := g.store.ping(ctx); err != nil {
		return false
	}
	g.available.Store(true)
	slog.Info("presence store recovered")
	return true
}

func (g *PresenceRegistry) markUnavailable(op string, err error) {
	if g.available.CompareAndSwap(true, false) {
		slog.Warn("presence store degraded to in-memory registry",
			slog.String("op", op), slog.Any("error", err))
	}
}

func (g *PresenceRegistry) AddConnection(ctx context.Context, userID, connectionID string) error {
	g.local.Add(userID, connectionID)
	if !g.storeAvailable(ctx) {
		return nil
	}
	if err := g.store.AddConnection(ctx, userID, connectionID); err != nil {
		g.markUnavailable("add", err)
	}
	return nil
}

func (g *PresenceRegistry) RemoveConnection(ctx context.Context, connectionID string) error {
	g.local.Remove(connectionID)
	if !g.storeAvailable(ctx) {
		return nil
	}
	if err := g.store.RemoveConnection(ctx, connectionID); err != nil {
		g.markUnavailable("remove", err)
	}
	return nil
}

func (g *PresenceRegistry) Connections(ctx context.Context, userID string) ([]string, error) {
	if g.storeAvailable(ctx) {
		conns, err := g.store.Connections(ctx, userID)
		if err == nil {
			return conns, nil
		}
		g.markUnavailable("members", err)
	}
	return g.local.Connections(userID), nil
}

func (g *PresenceRegistry) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	if g.storeAvailable(ctx) {
		online, err := g.store.IsUserOnline(ctx, userID)
		if err == nil {
			return online, nil
		}
		g.markUnavailable("online", err)
	}
	return g.local.IsOnline(userID), nil
}

func (g *PresenceRegistry) CountOnlineUsers(ctx context.Context) (int, error) {
	if g.storeAvailable(ctx) {
		count, err := g.store.CountOnlineUsers(ctx)
		if err == nil {
			return count, nil
		}
		g.markUnavailable("count", err)
	}
	return g.local.CountUsers(), nil
}

func (g *PresenceRegistry) UserByConnection(ctx context.Context, connectionID string) (string, error) {
	if g.storeAvailable(ctx) {
		userID, err := g.store.UserByConnection(ctx, connectionID)
		if err == nil {
			return userID, nil
		}
		g.markUnavailable("reverse", err)
	}
	return g.local.UserByConnection(connectionID), nil
}

var _ port.PresenceRegistry = (*PresenceRegistry)(nil)
