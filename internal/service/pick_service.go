package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/idgen"
	"gamepicker/internal/model"
	"gamepicker/internal/selection"

	"github.com/rs/zerolog/log"
)

// PickOptions narrows the candidate set of a pick
type PickOptions struct {
	Lengths      []model.Length `json:"lengths"`
	UseWeighting bool           `json:"useWeighting"`
}

// PickService drives a session from spinning to active
type PickService struct {
	sessions    cache.SessionCache
	items       cache.ItemCache
	rooms       cache.RoomCache
	selector    *selection.Selector
	broadcaster Broadcaster
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewPickService creates a new pick service
func NewPickService(
	sessions cache.SessionCache,
	items cache.ItemCache,
	rooms cache.RoomCache,
	selector *selection.Selector,
	sessionTTL time.Duration,
) *PickService {
	return &PickService{
		sessions:    sessions,
		items:       items,
		rooms:       rooms,
		selector:    selector,
		broadcaster: nopBroadcaster{},
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// SetBroadcaster sets the realtime event sink
func (s *PickService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// StartPick opens a new session for the room and resolves it to one item.
// Viewers get session_spinning before the item is known, then session_active.
func (s *PickService) StartPick(ctx context.Context, roomCode string, opts PickOptions) (*model.Session, error) {
	if err := requireRoom(ctx, s.rooms, roomCode); err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx, roomCode)
	if err != nil {
		return nil, storeErr(err)
	}
	candidates := filterByLength(items, opts.Lengths)
	if len(candidates) == 0 {
		return nil, ErrNoCandidatesAvailable
	}

	now := s.now()
	session := &model.Session{
		ID:        idgen.NewULID(now),
		RoomCode:  roomCode,
		CreatedAt: now.UnixMilli(),
		Status:    model.StatusSpinning,
	}
	created, err := s.sessions.Create(ctx, roomCode, session, s.sessionTTL)
	if err != nil {
		return nil, storeErr(err)
	}
	if !created {
		return nil, ErrSessionInProgress
	}
	emit(ctx, s.broadcaster, roomCode, model.NewSessionSpinning(*session))

	weights := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		weights[c.ID] = selection.Weight(c.Counters)
	}
	item, err := s.selector.Pick(candidates, weights, opts.UseWeighting)
	if err != nil {
		s.abandon(ctx, session)
		return nil, ErrNoCandidatesAvailable
	}

	counters, err := s.items.Increment(ctx, roomCode, item.ID, cache.CounterPicks)
	if err != nil {
		s.abandon(ctx, session)
		return nil, storeErr(err)
	}
	if err := s.items.SetWeight(ctx, roomCode, item.ID, selection.Weight(counters)); err != nil {
		s.abandon(ctx, session)
		return nil, storeErr(err)
	}

	if err := s.sessions.Activate(ctx, roomCode, session.ID, item.ID, item.Name); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			// expired or cleared while spinning
			return nil, ErrNoActiveSession
		}
		s.abandon(ctx, session)
		return nil, storeErr(err)
	}

	session.Status = model.StatusActive
	session.ItemID = &item.ID
	session.ItemName = &item.Name
	emit(ctx, s.broadcaster, roomCode, model.NewSessionActive(*session))

	log.Info().
		Str("room", roomCode).
		Str("session", session.ID).
		Str("item", item.ID).
		Int("candidates", len(candidates)).
		Msg("pick resolved")
	return session, nil
}

// Current returns the live session of the room, or nil when there is none
func (s *PickService) Current(ctx context.Context, roomCode string) (*model.Session, error) {
	if err := requireRoom(ctx, s.rooms, roomCode); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, roomCode)
	if err != nil {
		return nil, storeErr(err)
	}
	return session, nil
}

// Clear drops the live session without touching stats or history.
// In a room only the host may clear.
func (s *PickService) Clear(ctx context.Context, roomCode, callerID string) error {
	if roomCode != "" {
		room, err := s.rooms.Get(ctx, roomCode)
		if err != nil {
			return storeErr(err)
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if !room.IsHost(callerID) {
			return ErrNotHost
		}
	}

	session, err := s.sessions.Get(ctx, roomCode)
	if err != nil {
		return storeErr(err)
	}
	if session == nil {
		return ErrNoActiveSession
	}
	claimed, err := s.sessions.ClaimFinalize(ctx, roomCode, session.ID)
	if errors.Is(err, cache.ErrNotFound) || (err == nil && !claimed) {
		return ErrNoActiveSession
	}
	if err != nil {
		return storeErr(err)
	}
	if _, err := s.sessions.Delete(ctx, roomCode, session.ID); err != nil {
		return storeErr(err)
	}

	emit(ctx, s.broadcaster, roomCode, model.NewSessionClosed(*session, model.OutcomeCleared))
	log.Info().Str("room", roomCode).Str("session", session.ID).Msg("session cleared")
	return nil
}

// abandon removes a spinning session whose pick failed so the room is not
// blocked until the ttl runs out.
func (s *PickService) abandon(ctx context.Context, session *model.Session) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.sessions.Delete(ctx, session.RoomCode, session.ID); err != nil {
		log.Error().Err(err).Str("room", session.RoomCode).Str("session", session.ID).Msg("failed to drop abandoned session")
		return
	}
	emit(ctx, s.broadcaster, session.RoomCode, model.NewSessionClosed(*session, model.OutcomeCleared))
}

func filterByLength(items []model.Item, lengths []model.Length) []model.Item {
	if len(lengths) == 0 {
		return items
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if slices.Contains(lengths, it.Length) {
			out = append(out, it)
		}
	}
	return out
}

// requireRoom checks that a room exists. The global scope always exists.
func requireRoom(ctx context.Context, rooms cache.RoomCache, roomCode string) error {
	if roomCode == "" {
		return nil
	}
	ok, err := rooms.Exists(ctx, roomCode)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrRoomNotFound
	}
	return nil
}
