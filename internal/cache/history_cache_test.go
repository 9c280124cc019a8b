package cache

import (
	"context"
	"fmt"
	"testing"

	"gamepicker/internal/model"

	"github.com/stretchr/testify/require"
)

func TestHistoryCappedMostRecentFirst(t *testing.T) {
	client, _ := newTestRedis(t)
	c := NewHistoryCache(client)
	ctx := context.Background()

	var last []model.HistoryEntry
	for i := 0; i < model.HistoryLimit+10; i++ {
		entries, err := c.Push(ctx, "ABC234", model.HistoryEntry{
			ItemID:    fmt.Sprintf("g_%d", i),
			Timestamp: int64(i),
			Status:    model.OutcomePlayed,
		})
		require.NoError(t, err)
		require.LessOrEqual(t, len(entries), model.HistoryLimit)
		last = entries
	}

	require.Len(t, last, model.HistoryLimit)
	require.Equal(t, fmt.Sprintf("g_%d", model.HistoryLimit+9), last[0].ItemID)
	require.Equal(t, "g_10", last[len(last)-1].ItemID)

	limited, err := c.List(ctx, "ABC234", 5)
	require.NoError(t, err)
	require.Len(t, limited, 5)
	require.Equal(t, last[:5], limited)
}

func TestHistoryReplace(t *testing.T) {
	client, _ := newTestRedis(t)
	c := NewHistoryCache(client)
	ctx := context.Background()

	_, err := c.Push(ctx, "ABC234", model.HistoryEntry{ItemID: "old"})
	require.NoError(t, err)

	entries := []model.HistoryEntry{{ItemID: "new"}, {ItemID: "older"}}
	require.NoError(t, c.Replace(ctx, "ABC234", entries))

	got, err := c.List(ctx, "ABC234", 0)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}
