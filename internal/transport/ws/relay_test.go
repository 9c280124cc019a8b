package ws

import (
	"context"
	"testing"
	"time"

	"gamepicker/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRelayForwardsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := startHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	relayDone := make(chan error, 1)
	go func() { relayDone <- NewRelay(client, hub).Run(ctx) }()

	conn := hub.Subscribe("AAAAAA", "m1", nil)
	other := hub.Subscribe("BBBBBB", "m2", nil)

	publisher := NewRedisPublisher(client)
	require.Eventually(t, func() bool { return mr.PubSubNumPat() > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Publish(ctx, "AAAAAA", model.NewMembersUpdated(nil)))
	require.NoError(t, publisher.Publish(ctx, "AAAAAA", model.NewHostTransferred("m1", "")))
	// junk on a room channel is ignored
	require.NoError(t, client.Publish(ctx, "room:AAAAAA", "not json").Err())
	require.NoError(t, publisher.Publish(ctx, "AAAAAA", model.NewUserKicked("m9")))

	ev := receive(t, conn)
	members, ok := ev.(model.MembersUpdated)
	require.True(t, ok)
	require.NotNil(t, members.Members)
	require.Equal(t, model.EventHostTransferred, receive(t, conn).Type())
	require.Equal(t, model.EventUserKicked, receive(t, conn).Type())

	select {
	case <-other.Send:
		t.Fatal("event leaked into another room")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-relayDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
