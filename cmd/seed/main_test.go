package main

import (
	"context"
	"testing"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"
	"gamepicker/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSeedSkipsExistingNames(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	items := service.NewItemService(cache.NewItemCache(rdb), cache.NewHistoryCache(rdb), cache.NewRoomCache(rdb, time.Hour))
	ctx := context.Background()

	_, err := items.Add(ctx, "", "catan", "long")
	require.NoError(t, err)

	catalog := []seedItem{{"Catan", model.LengthLong}, {"Azul", model.LengthMedium}}
	added, err := seed(ctx, items, "", catalog)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	added, err = seed(ctx, items, "", catalog)
	require.NoError(t, err)
	require.Zero(t, added)

	list, err := items.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestSeedUnknownRoom(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	items := service.NewItemService(cache.NewItemCache(rdb), cache.NewHistoryCache(rdb), cache.NewRoomCache(rdb, time.Hour))

	_, err := seed(context.Background(), items, "NOPE99", defaultCatalog)
	require.ErrorIs(t, err, service.ErrRoomNotFound)
}
