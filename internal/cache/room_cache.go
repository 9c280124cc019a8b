package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"gamepicker/internal/model"

	"github.com/redis/go-redis/v9"
)

// RoomCache handles Redis operations for room state
type RoomCache interface {
	Create(ctx context.Context, room *model.Room) (bool, error)
	Get(ctx context.Context, code string) (*model.Room, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*model.Room, bool, error)
	List(ctx context.Context) ([]model.Room, error)
	Delete(ctx context.Context, code string) (int64, error)
	Exists(ctx context.Context, code string) (bool, error)
}

// UpdateFunc mutates room in place and reports whether it changed.
// Returning an error aborts the update without writing.
type UpdateFunc func(room *model.Room) (bool, error)

const maxUpdateRetries = 16

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a new room cache. Every write refreshes the ttl.
func NewRoomCache(client *redis.Client, ttl time.Duration) RoomCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &roomCache{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new room unless the code is already taken
func (c *roomCache) Create(ctx context.Context, room *model.Room) (bool, error) {
	data, err := json.Marshal(room)
	if err != nil {
		return false, err
	}
	ok, err := c.client.SetNX(ctx, roomKey(room.Code), data, c.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	if err := c.client.SAdd(ctx, roomsListKey, room.Code).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *roomCache) Get(ctx context.Context, code string) (*model.Room, error) {
	data, err := c.client.Get(ctx, roomKey(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(data)
}

// Update applies fn inside an optimistic WATCH transaction and retries when
// another writer touched the room in between.
func (c *roomCache) Update(ctx context.Context, code string, fn UpdateFunc) (*model.Room, bool, error) {
	key := roomKey(code)
	var (
		result  *model.Room
		changed bool
	)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		room, err := decodeRoom(data)
		if err != nil {
			return err
		}
		changed, err = fn(room)
		if err != nil {
			return err
		}
		result = room
		if !changed {
			return nil
		}
		out, err := json.Marshal(room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return result, changed, nil
	}
	return nil, false, ErrConflict
}

// List returns all live rooms, newest first. Codes whose room expired are
// dropped from the index and their prefixed keys are purged.
func (c *roomCache) List(ctx context.Context) ([]model.Room, error) {
	codes, err := c.client.SMembers(ctx, roomsListKey).Result()
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return []model.Room{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = roomKey(code)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(codes))
	var stale []string
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			stale = append(stale, codes[i])
			continue
		}
		room, err := decodeRoom(data)
		if err != nil {
			continue
		}
		rooms = append(rooms, *room)
	}
	// a code stays indexed until its keys are gone, so a failed purge is
	// retried by the next List
	for _, code := range stale {
		if _, err := c.deletePrefix(ctx, code); err == nil {
			c.client.SRem(ctx, roomsListKey, code)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt > rooms[j].CreatedAt
	})
	return rooms, nil
}

// Delete removes the room record, its index entry and every key under its
// prefix. It returns how many keys were deleted.
func (c *roomCache) Delete(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, ErrNotFound
	}
	deleted, err := c.deletePrefix(ctx, code)
	if err != nil {
		return deleted, err
	}

	n, err := c.client.Del(ctx, roomKey(code)).Result()
	if err != nil {
		return deleted, err
	}
	deleted += n
	return deleted, c.client.SRem(ctx, roomsListKey, code).Err()
}

// deletePrefix removes every key under room:<CODE>: in SCAN batches
func (c *roomCache) deletePrefix(ctx context.Context, code string) (int64, error) {
	var deleted int64
	iter := c.client.Scan(ctx, 0, prefix(code)+"*", 100).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	err := flush()
	return deleted, err
}

func (c *roomCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, roomKey(code)).Result()
	return n > 0, err
}

func decodeRoom(data string) (*model.Room, error) {
	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	if room.Members == nil {
		room.Members = []model.Member{}
	}
	return &room, nil
}
