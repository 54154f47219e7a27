package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key schema shared by every service instance:
//
//	user:sockets:{userId} -> set of connection ids
//	socket:user:{connId}  -> owning user id (reverse mapping for cleanup)
//
// Both carry a 24h TTL so connections that disappeared without a clean
// teardown age out instead of leaking.
const (
	userSocketsPrefix = "user:sockets:"
	socketUserPrefix  = "socket:user:"
	presenceTTL       = 24 * time.Hour
)

// RedisPresence is the distributed presence store shared by all instances.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

// AddConnection issues the four writes (set add, set TTL refresh, reverse key,
// reverse TTL refresh) as one pipelined round trip. The pipeline batches, it
// does not make the writes transactional; a crash mid-write is healed by TTL
// expiry, not by retries.
func (r *RedisPresence) AddConnection(ctx context.Context, userID, connectionID string) error {
	userKey := userSocketsPrefix + userID
	socketKey := socketUserPrefix + connectionID

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, userKey, connectionID)
	pipe.Expire(ctx, userKey, presenceTTL)
	pipe.Set(ctx, socketKey, userID, 0)
	pipe.Expire(ctx, socketKey, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence add %s/%s: %w", userID, connectionID, err)
	}
	return nil
}

// RemoveConnection resolves the owning user via the reverse key, then removes
// the forward entry and the reverse key together. Absent reverse key means the
// connection is already gone: a no-op, not an error.
func (r *RedisPresence) RemoveConnection(ctx context.Context, connectionID string) error {
	socketKey := socketUserPrefix + connectionID
	userID, err := r.client.Get(ctx, socketKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("presence reverse lookup %s: %w", connectionID, err)
	}

	pipe := r.client.Pipeline()
	pipe.SRem(ctx, userSocketsPrefix+userID, connectionID)
	pipe.Del(ctx, socketKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence remove %s: %w", connectionID, err)
	}
	return nil
}

func (r *RedisPresence) Connections(ctx context.Context, userID string) ([]string, error) {
	conns, err := r.client.SMembers(ctx, userSocketsPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members %s: %w", userID, err)
	}
	return conns, nil
}

func (r *RedisPresence) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	count, err := r.client.SCard(ctx, userSocketsPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("presence cardinality %s: %w", userID, err)
	}
	return count > 0, nil
}

// CountOnlineUsers enumerates forward keys. Approximate under concurrent
// churn, which is all the stats surface needs.
func (r *RedisPresence) CountOnlineUsers(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, userSocketsPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("presence key scan: %w", err)
	}
	return len(keys), nil
}

func (r *RedisPresence) UserByConnection(ctx context.Context, connectionID string) (string, error) {
	userID, err := r.client.Get(ctx, socketUserPrefix+connectionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("presence reverse lookup %s: %w", connectionID, err)
	}
	return userID, nil
}

func (r *RedisPresence) ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
