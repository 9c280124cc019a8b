package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"gamepicker/internal/model"

	"github.com/redis/go-redis/v9"
)

// ItemCache handles the item catalog of a scope: the id set, one JSON record
// per item and one stats hash per item.
type ItemCache interface {
	List(ctx context.Context, scope string) ([]model.Item, error)
	Get(ctx context.Context, scope, id string) (*model.Item, error)
	Save(ctx context.Context, scope string, item *model.Item) error
	Delete(ctx context.Context, scope, id string) error
	Increment(ctx context.Context, scope, id string, field CounterField) (model.Counters, error)
	SetWeight(ctx context.Context, scope, id string, weight float64) error
	ResetStats(ctx context.Context, scope string) (int, error)
	SetStats(ctx context.Context, scope, id string, counters model.Counters, weight float64) error
}

// CounterField names a field of the stats hash
type CounterField string

const (
	CounterPicks   CounterField = "picks"
	CounterPlayed  CounterField = "played"
	CounterSkipped CounterField = "skipped"
	statsWeight                 = "weight"
)

type itemRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Length    model.Length `json:"length"`
	CreatedAt time.Time    `json:"createdAt"`
}

type itemCache struct {
	client *redis.Client
}

func NewItemCache(client *redis.Client) ItemCache {
	return &itemCache{
		client: client,
	}
}

// List returns every item of the scope ordered by creation time then id
func (c *itemCache) List(ctx context.Context, scope string) ([]model.Item, error) {
	ids, err := c.client.SMembers(ctx, itemIDsKey(scope)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Item{}, nil
	}

	records := make([]*redis.StringCmd, len(ids))
	stats := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			records[i] = pipe.Get(ctx, itemKey(scope, id))
			stats[i] = pipe.HGetAll(ctx, statsKey(scope, id))
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(ids))
	for i := range ids {
		data, err := records[i].Result()
		if err == redis.Nil {
			// id left behind by a partial delete
			continue
		}
		if err != nil {
			return nil, err
		}
		item, err := decodeItem(data, stats[i].Val())
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (c *itemCache) Get(ctx context.Context, scope, id string) (*model.Item, error) {
	data, err := c.client.Get(ctx, itemKey(scope, id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stats, err := c.client.HGetAll(ctx, statsKey(scope, id)).Result()
	if err != nil {
		return nil, err
	}
	return decodeItem(data, stats)
}

// Save writes the item record and registers its id. Counters are left alone.
func (c *itemCache) Save(ctx context.Context, scope string, item *model.Item) error {
	data, err := json.Marshal(itemRecord{
		ID:        item.ID,
		Name:      item.Name,
		Length:    item.Length,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(scope, item.ID), data, 0)
		pipe.SAdd(ctx, itemIDsKey(scope), item.ID)
		return nil
	})
	return err
}

func (c *itemCache) Delete(ctx context.Context, scope, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, itemIDsKey(scope), id)
		pipe.Del(ctx, itemKey(scope, id), statsKey(scope, id))
		return nil
	})
	return err
}

// Increment bumps one counter with HINCRBY and returns all counters after the write
func (c *itemCache) Increment(ctx context.Context, scope, id string, field CounterField) (model.Counters, error) {
	var all *redis.MapStringStringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, statsKey(scope, id), string(field), 1)
		all = pipe.HGetAll(ctx, statsKey(scope, id))
		return nil
	})
	if err != nil {
		return model.Counters{}, err
	}
	return parseCounters(all.Val()), nil
}

func (c *itemCache) SetWeight(ctx context.Context, scope, id string, weight float64) error {
	return c.client.HSet(ctx, statsKey(scope, id), statsWeight, strconv.FormatFloat(weight, 'f', 3, 64)).Err()
}

// SetStats overwrites the whole stats hash of an item
func (c *itemCache) SetStats(ctx context.Context, scope, id string, counters model.Counters, weight float64) error {
	return c.client.HSet(ctx, statsKey(scope, id),
		string(CounterPicks), counters.Picks,
		string(CounterPlayed), counters.Played,
		string(CounterSkipped), counters.Skipped,
		statsWeight, strconv.FormatFloat(weight, 'f', 3, 64),
	).Err()
}

// ResetStats zeroes the counters of every item in the scope
func (c *itemCache) ResetStats(ctx context.Context, scope string) (int, error) {
	ids, err := c.client.SMembers(ctx, itemIDsKey(scope)).Result()
	if err != nil {
		return 0, err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, statsKey(scope, id))
			pipe.HSet(ctx, statsKey(scope, id),
				string(CounterPicks), 0,
				string(CounterPlayed), 0,
				string(CounterSkipped), 0,
			)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func decodeItem(data string, stats map[string]string) (*model.Item, error) {
	var rec itemRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	item := &model.Item{
		ID:        rec.ID,
		Name:      rec.Name,
		Length:    model.ParseLength(string(rec.Length)),
		CreatedAt: rec.CreatedAt,
		Counters:  parseCounters(stats),
	}
	if w, err := strconv.ParseFloat(stats[statsWeight], 64); err == nil && w > 0 {
		item.Weight = w
	}
	return item, nil
}

func parseCounters(stats map[string]string) model.Counters {
	var c model.Counters
	c.Picks, _ = strconv.ParseInt(stats[string(CounterPicks)], 10, 64)
	c.Played, _ = strconv.ParseInt(stats[string(CounterPlayed)], 10, 64)
	c.Skipped, _ = strconv.ParseInt(stats[string(CounterSkipped)], 10, 64)
	return c
}
