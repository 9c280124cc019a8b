package cache

import (
	"context"
	"encoding/json"

	"gamepicker/internal/model"

	"github.com/redis/go-redis/v9"
)

// HistoryCache keeps the most-recent-first list of finalized rounds, capped at
// model.HistoryLimit entries.
type HistoryCache interface {
	Push(ctx context.Context, scope string, entry model.HistoryEntry) ([]model.HistoryEntry, error)
	List(ctx context.Context, scope string, limit int) ([]model.HistoryEntry, error)
	Replace(ctx context.Context, scope string, entries []model.HistoryEntry) error
}

type historyCache struct {
	client *redis.Client
}

func NewHistoryCache(client *redis.Client) HistoryCache {
	return &historyCache{
		client: client,
	}
}

// Push prepends entry, trims the list and returns it after the write
func (c *historyCache) Push(ctx context.Context, scope string, entry model.HistoryEntry) ([]model.HistoryEntry, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	var after *redis.StringSliceCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, historyKey(scope), data)
		pipe.LTrim(ctx, historyKey(scope), 0, model.HistoryLimit-1)
		after = pipe.LRange(ctx, historyKey(scope), 0, model.HistoryLimit-1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeHistory(after.Val()), nil
}

func (c *historyCache) List(ctx context.Context, scope string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 || limit > model.HistoryLimit {
		limit = model.HistoryLimit
	}
	raw, err := c.client.LRange(ctx, historyKey(scope), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return decodeHistory(raw), nil
}

// Replace overwrites the list with entries, kept in the given order
func (c *historyCache) Replace(ctx context.Context, scope string, entries []model.HistoryEntry) error {
	if len(entries) > model.HistoryLimit {
		entries = entries[:model.HistoryLimit]
	}
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, historyKey(scope))
		if len(values) > 0 {
			pipe.RPush(ctx, historyKey(scope), values...)
		}
		return nil
	})
	return err
}

// decodeHistory skips entries that are not valid JSON
func decodeHistory(raw []string) []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, len(raw))
	for _, r := range raw {
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
