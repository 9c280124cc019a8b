package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"
	"gamepicker/internal/selection"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testRoom = "ROOM23"

type published struct {
	room string
	ev   model.Event
}

// recorder is a Broadcaster that keeps every event in order
type recorder struct {
	mu     sync.Mutex
	events []published
	fail   bool
}

func (r *recorder) Publish(_ context.Context, roomCode string, ev model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{room: roomCode, ev: ev})
	if r.fail {
		return errors.New("transport down")
	}
	return nil
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, p := range r.events {
		out[i] = p.ev.Type()
	}
	return out
}

func (r *recorder) last() model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1].ev
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	mr     *miniredis.Miniredis
	client *redis.Client

	roomCache     cache.RoomCache
	sessionCache  cache.SessionCache
	itemCache     cache.ItemCache
	historyCache  cache.HistoryCache
	presenceCache cache.PresenceCache

	auth     *AuthService
	rooms    *RoomService
	items    *ItemService
	pick     *PickService
	vote     *VoteService
	presence *PresenceService

	events *recorder
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		mr:            mr,
		client:        client,
		roomCache:     cache.NewRoomCache(client, 24*time.Hour),
		sessionCache:  cache.NewSessionCache(client),
		itemCache:     cache.NewItemCache(client),
		historyCache:  cache.NewHistoryCache(client),
		presenceCache: cache.NewPresenceCache(client, 24*time.Hour),
		events:        &recorder{},
		now:           time.UnixMilli(1_750_000_000_000),
	}
	clock := func() time.Time { return f.now }

	f.auth = NewAuthService(cache.NewCredentialCache(client), "test-secret", time.Hour)
	f.auth.now = clock
	f.rooms = NewRoomService(f.roomCache, f.auth)
	f.rooms.now = clock
	f.items = NewItemService(f.itemCache, f.historyCache, f.roomCache)
	f.items.now = clock
	f.pick = NewPickService(f.sessionCache, f.itemCache, f.roomCache, selection.NewSelector(rand.NewPCG(1, 2)), 10*time.Minute)
	f.pick.now = clock
	f.vote = NewVoteService(f.sessionCache, f.itemCache, f.historyCache, f.roomCache, nil)
	f.vote.now = clock
	f.presence = NewPresenceService(f.roomCache, f.presenceCache, time.Minute, 45*time.Second)
	f.presence.now = clock

	f.rooms.SetBroadcaster(f.events)
	f.pick.SetBroadcaster(f.events)
	f.vote.SetBroadcaster(f.events)
	f.presence.SetBroadcaster(f.events)
	return f
}

// seedRoom stores a room whose first member is the host. Members joined an
// hour before the fixture clock so the presence grace window does not apply.
func (f *fixture) seedRoom(t *testing.T, memberIDs ...string) *model.Room {
	t.Helper()
	room := &model.Room{
		Code:      testRoom,
		Name:      "Game night",
		CreatedAt: f.now.UnixMilli(),
		Members:   []model.Member{},
	}
	for i, id := range memberIDs {
		if i == 0 {
			room.HostID = id
		}
		room.Members = append(room.Members, model.Member{
			ID:       id,
			Username: "user-" + id,
			JoinedAt: f.now.Add(-time.Hour).UnixMilli(),
		})
	}
	ok, err := f.roomCache.Create(context.Background(), room)
	require.NoError(t, err)
	require.True(t, ok)
	return room
}

func (f *fixture) addItems(t *testing.T, scope string, names ...string) []*model.Item {
	t.Helper()
	out := make([]*model.Item, len(names))
	for i, name := range names {
		item, err := f.items.Add(context.Background(), scope, name, "")
		require.NoError(t, err)
		out[i] = item
		f.now = f.now.Add(time.Millisecond)
	}
	return out
}

// activeSession runs a pick and returns the resolved session
func (f *fixture) activeSession(t *testing.T, scope string) *model.Session {
	t.Helper()
	session, err := f.pick.StartPick(context.Background(), scope, PickOptions{UseWeighting: true})
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, session.Status)
	return session
}

func TestStoreErrWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := storeErr(cause)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
}
