package service

import (
	"context"
	"testing"

	"gamepicker/internal/model"

	"github.com/stretchr/testify/require"
)

func TestStartPickAnnouncesSpinningThenActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	f.addItems(t, testRoom, "Catan", "Azul", "Wingspan")

	session, err := f.pick.StartPick(ctx, testRoom, PickOptions{UseWeighting: true})
	require.NoError(t, err)
	require.NotNil(t, session.ItemID)
	require.NotNil(t, session.ItemName)
	require.Equal(t, testRoom, session.RoomCode)

	require.Equal(t, []model.EventType{model.EventSessionSpinning, model.EventSessionActive}, f.events.types())
	spinning := f.events.events[0].ev.(model.SessionSpinning)
	require.Nil(t, spinning.Session.ItemID)
	require.Equal(t, model.StatusSpinning, spinning.Session.Status)
	require.Equal(t, session.ID, spinning.Session.ID)

	active := f.events.events[1].ev.(model.SessionActive)
	require.Equal(t, *session, active.Session)

	stored, err := f.pick.Current(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, session.ID, stored.ID)
	require.Equal(t, model.StatusActive, stored.Status)
}

func TestStartPickIncrementsPicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	items := f.addItems(t, testRoom, "Catan")

	_, err := f.pick.StartPick(ctx, testRoom, PickOptions{})
	require.NoError(t, err)

	item, err := f.itemCache.Get(ctx, testRoom, items[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.Counters{Picks: 1}, item.Counters)
	require.InDelta(t, 1.0, item.Weight, 1e-9)
}

func TestStartPickNoCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")

	_, err := f.pick.StartPick(ctx, testRoom, PickOptions{})
	require.ErrorIs(t, err, ErrNoCandidatesAvailable)

	f.addItems(t, testRoom, "Catan") // medium
	_, err = f.pick.StartPick(ctx, testRoom, PickOptions{Lengths: []model.Length{model.LengthShort}})
	require.ErrorIs(t, err, ErrNoCandidatesAvailable)

	require.Empty(t, f.events.types())
	current, err := f.pick.Current(ctx, testRoom)
	require.NoError(t, err)
	require.Nil(t, current)
}

func TestStartPickLengthFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	f.addItems(t, testRoom, "Catan")
	short, err := f.items.Add(ctx, testRoom, "Love Letter", "short")
	require.NoError(t, err)

	session, err := f.pick.StartPick(ctx, testRoom, PickOptions{Lengths: []model.Length{model.LengthShort}, UseWeighting: true})
	require.NoError(t, err)
	require.Equal(t, short.ID, *session.ItemID)
}

func TestStartPickRejectsWhileSessionLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host")
	f.addItems(t, testRoom, "Catan", "Azul")

	first := f.activeSession(t, testRoom)
	f.events.reset()

	_, err := f.pick.StartPick(ctx, testRoom, PickOptions{})
	require.ErrorIs(t, err, ErrSessionInProgress)
	require.Empty(t, f.events.types())

	current, err := f.pick.Current(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, first.ID, current.ID)
}

func TestStartPickUnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.pick.StartPick(context.Background(), "NOPE00", PickOptions{})
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartPickGlobalScope(t *testing.T) {
	f := newFixture(t)
	f.addItems(t, "", "Catan")

	session, err := f.pick.StartPick(context.Background(), "", PickOptions{})
	require.NoError(t, err)
	require.Empty(t, session.RoomCode)
	require.True(t, f.mr.Exists("game:session"))
}

func TestClearSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRoom(t, "host", "guest")
	items := f.addItems(t, testRoom, "Catan")
	session := f.activeSession(t, testRoom)
	f.events.reset()

	require.ErrorIs(t, f.pick.Clear(ctx, testRoom, "guest"), ErrNotHost)
	require.NoError(t, f.pick.Clear(ctx, testRoom, "host"))
	require.ErrorIs(t, f.pick.Clear(ctx, testRoom, "host"), ErrNoActiveSession)

	require.Equal(t, []model.EventType{model.EventSessionClosed}, f.events.types())
	closed := f.events.last().(model.SessionClosed)
	require.Equal(t, model.OutcomeCleared, closed.Outcome)
	require.Equal(t, session.ID, closed.SessionID)

	history, err := f.historyCache.List(ctx, testRoom, 0)
	require.NoError(t, err)
	require.Empty(t, history)

	item, err := f.itemCache.Get(ctx, testRoom, items[0].ID)
	require.NoError(t, err)
	require.Zero(t, item.Counters.Played+item.Counters.Skipped)
}
