package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache tracks live websocket connections per room in a ZSET scored
// by the last heartbeat (epoch millis). Each connection has its own entry,
// so a member stays live while any of their sockets is open.
type PresenceCache interface {
	Touch(ctx context.Context, roomCode, memberID, connID string, at time.Time) error
	Remove(ctx context.Context, roomCode, memberID, connID string) error
	List(ctx context.Context, roomCode string, since time.Time) ([]string, error)
	Prune(ctx context.Context, roomCode string, before time.Time) (int64, error)
}

const connSep = "|"

type presenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceCache(client *redis.Client, ttl time.Duration) PresenceCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &presenceCache{
		client: client,
		ttl:    ttl,
	}
}

func presenceEntry(memberID, connID string) string {
	if connID == "" {
		return memberID
	}
	return memberID + connSep + connID
}

func (c *presenceCache) Touch(ctx context.Context, roomCode, memberID, connID string, at time.Time) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, presenceKey(roomCode), redis.Z{
			Score:  float64(at.UnixMilli()),
			Member: presenceEntry(memberID, connID),
		})
		pipe.Expire(ctx, presenceKey(roomCode), c.ttl)
		return nil
	})
	return err
}

// Remove drops one connection. Other connections of the member stay live.
func (c *presenceCache) Remove(ctx context.Context, roomCode, memberID, connID string) error {
	return c.client.ZRem(ctx, presenceKey(roomCode), presenceEntry(memberID, connID)).Err()
}

// List returns the distinct members with a connection seen at or after since
func (c *presenceCache) List(ctx context.Context, roomCode string, since time.Time) ([]string, error) {
	entries, err := c.client.ZRangeByScore(ctx, presenceKey(roomCode), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, _, _ := strings.Cut(e, connSep)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *presenceCache) Prune(ctx context.Context, roomCode string, before time.Time) (int64, error) {
	return c.client.ZRemRangeByScore(ctx, presenceKey(roomCode), "-inf", "("+strconv.FormatInt(before.UnixMilli(), 10)).Result()
}
