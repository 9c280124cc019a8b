package service

import (
	"context"
	"testing"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"

	"github.com/stretchr/testify/require"
)

func TestItemCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")

	_, err := f.items.Add(ctx, testRoom, " ", "short")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.items.Add(ctx, "NOPE00", "Catan", "")
	require.ErrorIs(t, err, ErrRoomNotFound)

	item, err := f.items.Add(ctx, testRoom, "Catan", "long")
	require.NoError(t, err)
	require.Equal(t, model.LengthLong, item.Length)
	require.Equal(t, 1.0, item.Weight)

	name := "Catan: Seafarers"
	updated, err := f.items.Update(ctx, testRoom, item.ID, ItemUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, model.LengthLong, updated.Length)

	items, err := f.items.List(ctx, testRoom)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, name, items[0].Name)

	require.NoError(t, f.items.Remove(ctx, testRoom, item.ID))
	require.ErrorIs(t, f.items.Remove(ctx, testRoom, item.ID), ErrItemNotFound)
	_, err = f.items.Update(ctx, testRoom, item.ID, ItemUpdate{Name: &name})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestStatsAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	items := f.addItems(t, testRoom, "Catan", "Azul", "Root")

	bump := func(id string, field cache.CounterField, n int) {
		for i := 0; i < n; i++ {
			_, err := f.itemCache.Increment(ctx, testRoom, id, field)
			require.NoError(t, err)
		}
	}
	bump(items[0].ID, cache.CounterPicks, 3)
	bump(items[0].ID, cache.CounterPlayed, 3)
	bump(items[1].ID, cache.CounterPicks, 5)
	bump(items[1].ID, cache.CounterSkipped, 4)

	stats, err := f.items.Stats(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, items[0].ID, stats.MostPlayed[0].ID)
	require.Equal(t, items[1].ID, stats.MostSkipped[0].ID)
	require.Equal(t, items[1].ID, stats.AllItems[0].ID)
	require.Len(t, stats.AllItems, 3)
	require.InDelta(t, 0.25, stats.MostPlayed[0].Weight, 1e-9)

	n, err := f.items.ResetStats(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	listed, err := f.items.List(ctx, testRoom)
	require.NoError(t, err)
	for _, it := range listed {
		require.Equal(t, model.Counters{}, it.Counters)
		require.Equal(t, 1.0, it.Weight)
	}
}

func TestCloneGlobal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	global := f.addItems(t, "", "Catan", "Azul")
	_, err := f.itemCache.Increment(ctx, "", global[0].ID, cache.CounterPlayed)
	require.NoError(t, err)
	_, err = f.historyCache.Push(ctx, "", model.HistoryEntry{ItemID: global[0].ID, ItemName: "Catan", Status: model.OutcomePlayed})
	require.NoError(t, err)

	res, err := f.items.CloneGlobal(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, &CloneResult{ItemsCloned: 2, StatsCloned: 2, HistoryCloned: 1}, res)

	items, err := f.items.List(ctx, testRoom)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, global[0].ID, items[0].ID)
	require.Equal(t, int64(1), items[0].Counters.Played)

	history, err := f.items.History(ctx, testRoom, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = f.items.CloneGlobal(ctx, "NOPE00")
	require.ErrorIs(t, err, ErrRoomNotFound)
}
