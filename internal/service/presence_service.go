package service

import (
	"context"
	"errors"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"

	"github.com/rs/zerolog/log"
)

// ReconcileResult reports what a presence sync changed
type ReconcileResult struct {
	ActiveUsers int            `json:"activeUsers"`
	Members     []model.Member `json:"members"`
	Removed     []string       `json:"removed"`
	Changed     bool           `json:"changed"`
}

// PresenceService keeps stored rosters in line with live connections
type PresenceService struct {
	rooms       cache.RoomCache
	presence    cache.PresenceCache
	broadcaster Broadcaster
	grace       time.Duration
	staleAfter  time.Duration
	now         func() time.Time
}

// NewPresenceService creates a new presence service. grace protects members
// that joined over HTTP but have not opened a socket yet; staleAfter is how
// long a heartbeat counts as live.
func NewPresenceService(rooms cache.RoomCache, presence cache.PresenceCache, grace, staleAfter time.Duration) *PresenceService {
	return &PresenceService{
		rooms:       rooms,
		presence:    presence,
		broadcaster: nopBroadcaster{},
		grace:       grace,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

// SetBroadcaster sets the realtime event sink
func (s *PresenceService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// Enter marks one connection of memberID as live
func (s *PresenceService) Enter(ctx context.Context, roomCode, memberID, connID string) error {
	return s.presence.Touch(ctx, roomCode, memberID, connID, s.now())
}

// Heartbeat refreshes a live connection
func (s *PresenceService) Heartbeat(ctx context.Context, roomCode, memberID, connID string) error {
	return s.presence.Touch(ctx, roomCode, memberID, connID, s.now())
}

// Exit drops one connection from the live set. The member stays live while
// another of their connections is open. The roster is left to Reconcile.
func (s *PresenceService) Exit(ctx context.Context, roomCode, memberID, connID string) error {
	return s.presence.Remove(ctx, roomCode, memberID, connID)
}

// Live returns the member ids with a recent heartbeat
func (s *PresenceService) Live(ctx context.Context, roomCode string) ([]string, error) {
	ids, err := s.presence.List(ctx, roomCode, s.now().Add(-s.staleAfter))
	if err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

// Reconcile removes members that are neither live, recently joined nor the
// host, and broadcasts members_updated when the roster changed.
func (s *PresenceService) Reconcile(ctx context.Context, roomCode string) (*ReconcileResult, error) {
	now := s.now()
	live, err := s.presence.List(ctx, roomCode, now.Add(-s.staleAfter))
	if err != nil {
		return nil, storeErr(err)
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, id := range live {
		liveSet[id] = struct{}{}
	}

	removed := []string{}
	room, changed, err := s.rooms.Update(ctx, roomCode, func(r *model.Room) (bool, error) {
		removed = removed[:0]
		kept := make([]model.Member, 0, len(r.Members))
		for _, m := range r.Members {
			_, isLive := liveSet[m.ID]
			if isLive || m.JoinedWithin(now, s.grace) || r.IsHost(m.ID) {
				kept = append(kept, m)
				continue
			}
			removed = append(removed, m.ID)
		}
		if len(removed) == 0 {
			return false, nil
		}
		r.Members = kept
		return true, nil
	})
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}

	if changed {
		emit(ctx, s.broadcaster, roomCode, model.NewMembersUpdated(room.Members))
		log.Info().Str("room", roomCode).Strs("removed", removed).Int("members", len(room.Members)).Msg("roster reconciled")
	}
	if _, err := s.presence.Prune(ctx, roomCode, now.Add(-s.staleAfter)); err != nil {
		log.Warn().Err(err).Str("room", roomCode).Msg("failed to prune presence")
	}

	return &ReconcileResult{
		ActiveUsers: len(live),
		Members:     room.Members,
		Removed:     removed,
		Changed:     changed,
	}, nil
}

// Sweep reconciles every live room
func (s *PresenceService) Sweep(ctx context.Context) error {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return storeErr(err)
	}
	for _, r := range rooms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.Reconcile(ctx, r.Code); err != nil && !errors.Is(err, ErrRoomNotFound) {
			log.Warn().Err(err).Str("room", r.Code).Msg("presence sweep failed")
		}
	}
	return nil
}

// ClaimHost makes userID the host when the room has none or the stored host
// left the roster. The check and write happen in one WATCH transaction.
func (s *PresenceService) ClaimHost(ctx context.Context, roomCode, userID string) (*model.Room, error) {
	room, _, err := s.rooms.Update(ctx, roomCode, func(r *model.Room) (bool, error) {
		if _, ok := r.Member(userID); !ok {
			return false, ErrNotMember
		}
		if r.HostPresent() {
			return false, ErrHostPresent
		}
		r.HostID = userID
		return true, nil
	})
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil, ErrRoomNotFound
	case errors.Is(err, ErrNotMember), errors.Is(err, ErrHostPresent):
		return nil, err
	case err != nil:
		return nil, storeErr(err)
	}

	emit(ctx, s.broadcaster, roomCode, model.NewHostTransferred(userID, ""))
	emit(ctx, s.broadcaster, roomCode, model.NewMembersUpdated(room.Members))
	log.Info().Str("room", roomCode).Str("host", userID).Msg("host claimed")
	return room, nil
}
