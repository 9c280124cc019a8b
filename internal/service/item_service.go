package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/idgen"
	"gamepicker/internal/model"
	"gamepicker/internal/selection"

	"github.com/rs/zerolog/log"
)

// CloneResult counts what CloneGlobal copied into a room
type CloneResult struct {
	ItemsCloned   int `json:"gamesCloned"`
	StatsCloned   int `json:"statsCloned"`
	HistoryCloned int `json:"historyCloned"`
}

// ItemUpdate carries the fields to change; nil fields are left alone
type ItemUpdate struct {
	Name   *string `json:"name"`
	Length *string `json:"length"`
}

// ItemService manages the item catalog of a room or of the global scope
type ItemService struct {
	items   cache.ItemCache
	history cache.HistoryCache
	rooms   cache.RoomCache
	now     func() time.Time
}

func NewItemService(items cache.ItemCache, history cache.HistoryCache, rooms cache.RoomCache) *ItemService {
	return &ItemService{
		items:   items,
		history: history,
		rooms:   rooms,
		now:     time.Now,
	}
}

// List returns the catalog with counters and current weights
func (s *ItemService) List(ctx context.Context, scope string) ([]model.Item, error) {
	if err := requireRoom(ctx, s.rooms, scope); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, scope)
	if err != nil {
		return nil, storeErr(err)
	}
	for i := range items {
		items[i].Weight = selection.Weight(items[i].Counters)
	}
	return items, nil
}

func (s *ItemService) Add(ctx context.Context, scope, name, length string) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name required")
	}
	if err := requireRoom(ctx, s.rooms, scope); err != nil {
		return nil, err
	}

	item := &model.Item{
		ID:        idgen.NewItemID(),
		Name:      name,
		Length:    model.ParseLength(length),
		CreatedAt: s.now().UTC(),
		Weight:    selection.Weight(model.Counters{}),
	}
	if err := s.items.Save(ctx, scope, item); err != nil {
		return nil, storeErr(err)
	}
	if err := s.items.SetStats(ctx, scope, item.ID, item.Counters, item.Weight); err != nil {
		return nil, storeErr(err)
	}

	log.Info().Str("room", scope).Str("item", item.ID).Str("name", name).Msg("item added")
	return item, nil
}

func (s *ItemService) Update(ctx context.Context, scope, id string, upd ItemUpdate) (*model.Item, error) {
	item, err := s.items.Get(ctx, scope, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		item.Name = name
	}
	if upd.Length != nil {
		item.Length = model.ParseLength(*upd.Length)
	}
	if err := s.items.Save(ctx, scope, item); err != nil {
		return nil, storeErr(err)
	}
	item.Weight = selection.Weight(item.Counters)
	return item, nil
}

func (s *ItemService) Remove(ctx context.Context, scope, id string) error {
	item, err := s.items.Get(ctx, scope, id)
	if err != nil {
		return storeErr(err)
	}
	if item == nil {
		return ErrItemNotFound
	}
	if err := s.items.Delete(ctx, scope, id); err != nil {
		return storeErr(err)
	}
	log.Info().Str("room", scope).Str("item", id).Msg("item removed")
	return nil
}

// Stats ranks the catalog by plays, skips and picks
func (s *ItemService) Stats(ctx context.Context, scope string) (*model.ItemStats, error) {
	items, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	byCounter := func(get func(model.Counters) int64) []model.Item {
		out := make([]model.Item, len(items))
		copy(out, items)
		sort.SliceStable(out, func(i, j int) bool {
			return get(out[i].Counters) > get(out[j].Counters)
		})
		return out
	}
	return &model.ItemStats{
		MostPlayed:  byCounter(func(c model.Counters) int64 { return c.Played }),
		MostSkipped: byCounter(func(c model.Counters) int64 { return c.Skipped }),
		AllItems:    byCounter(func(c model.Counters) int64 { return c.Picks }),
	}, nil
}

// ResetStats zeroes every counter in the scope and returns how many items were reset
func (s *ItemService) ResetStats(ctx context.Context, scope string) (int, error) {
	if err := requireRoom(ctx, s.rooms, scope); err != nil {
		return 0, err
	}
	n, err := s.items.ResetStats(ctx, scope)
	if err != nil {
		return 0, storeErr(err)
	}
	log.Info().Str("room", scope).Int("items", n).Msg("stats reset")
	return n, nil
}

// CloneGlobal copies the global catalog, its stats and its history into a room
func (s *ItemService) CloneGlobal(ctx context.Context, roomCode string) (*CloneResult, error) {
	if roomCode == "" {
		return nil, invalid("room code required")
	}
	if err := requireRoom(ctx, s.rooms, roomCode); err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx, "")
	if err != nil {
		return nil, storeErr(err)
	}
	res := &CloneResult{}
	for i := range items {
		it := &items[i]
		if err := s.items.Save(ctx, roomCode, it); err != nil {
			return nil, storeErr(err)
		}
		res.ItemsCloned++
		if err := s.items.SetStats(ctx, roomCode, it.ID, it.Counters, selection.Weight(it.Counters)); err != nil {
			return nil, storeErr(err)
		}
		res.StatsCloned++
	}

	history, err := s.history.List(ctx, "", model.HistoryLimit)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(history) > 0 {
		if err := s.history.Replace(ctx, roomCode, history); err != nil {
			return nil, storeErr(err)
		}
		res.HistoryCloned = len(history)
	}

	log.Info().
		Str("room", roomCode).
		Int("items", res.ItemsCloned).
		Int("history", res.HistoryCloned).
		Msg("global catalog cloned")
	return res, nil
}

// History returns up to limit entries, most recent first
func (s *ItemService) History(ctx context.Context, scope string, limit int) ([]model.HistoryEntry, error) {
	if err := requireRoom(ctx, s.rooms, scope); err != nil {
		return nil, err
	}
	entries, err := s.history.List(ctx, scope, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}
