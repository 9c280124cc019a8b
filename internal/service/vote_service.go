package service

import (
	"context"
	"errors"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"
	"gamepicker/internal/repository"
	"gamepicker/internal/selection"

	"github.com/rs/zerolog/log"
)

// VoteResult is the tally after a vote and, once the round closed, its outcome
type VoteResult struct {
	Votes       model.Votes   `json:"votes"`
	MemberCount int           `json:"memberCount"`
	Majority    int           `json:"majority"`
	Finalized   bool          `json:"finalized"`
	Outcome     model.Outcome `json:"outcome,omitempty"`
}

// VoteService aggregates member votes into one outcome per session
type VoteService struct {
	sessions    cache.SessionCache
	items       cache.ItemCache
	history     cache.HistoryCache
	rooms       cache.RoomCache
	rounds      repository.RoundRepo
	broadcaster Broadcaster
	now         func() time.Time
}

// NewVoteService creates a new vote service. rounds may be nil when no
// archive is configured.
func NewVoteService(
	sessions cache.SessionCache,
	items cache.ItemCache,
	history cache.HistoryCache,
	rooms cache.RoomCache,
	rounds repository.RoundRepo,
) *VoteService {
	return &VoteService{
		sessions:    sessions,
		items:       items,
		history:     history,
		rooms:       rooms,
		rounds:      rounds,
		broadcaster: nopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the realtime event sink
func (s *VoteService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// CastVote records one vote. The round closes once every member has voted.
//
// The increment is the commit point. Errors are only returned before it;
// a failed finalize after it is logged and reported as Finalized=false.
func (s *VoteService) CastVote(ctx context.Context, roomCode, itemID string, choice model.Choice) (*VoteResult, error) {
	if !choice.Valid() {
		return nil, ErrInvalidChoice
	}
	memberCount, err := s.memberCount(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.IncrementVote(ctx, roomCode, itemID, choice)
	switch {
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrFinalizing):
		return nil, ErrNoActiveSession
	case errors.Is(err, cache.ErrSessionMismatch):
		return nil, ErrSessionMismatch
	case err != nil:
		return nil, storeErr(err)
	}

	result := &VoteResult{
		Votes:       session.Votes,
		MemberCount: memberCount,
		Majority:    (memberCount + 1) / 2,
	}
	if session.Votes.Total() < int64(memberCount) {
		emit(ctx, s.broadcaster, roomCode, model.NewVotesUpdated(session.ID, itemID, session.Votes))
		return result, nil
	}

	// the closing vote is announced by session_closed, which carries the tally
	outcome := DecideOutcome(session.Votes)
	applied, err := s.finalize(ctx, session, outcome, model.FinalizedByVote)
	if err != nil {
		log.Error().Err(err).Str("room", roomCode).Str("session", session.ID).Msg("vote stored but round not finalized")
		return result, nil
	}
	if applied {
		result.Finalized = true
		result.Outcome = outcome
	}
	return result, nil
}

// Finalize closes the live session immediately with the host's choice,
// regardless of how many members voted.
func (s *VoteService) Finalize(ctx context.Context, roomCode, callerID, itemID string, choice model.Choice) (*VoteResult, error) {
	if !choice.Valid() {
		return nil, ErrInvalidChoice
	}
	if roomCode != "" {
		room, err := s.rooms.Get(ctx, roomCode)
		if err != nil {
			return nil, storeErr(err)
		}
		if room == nil {
			return nil, ErrRoomNotFound
		}
		if !room.IsHost(callerID) {
			return nil, ErrNotHost
		}
	}

	session, err := s.sessions.Get(ctx, roomCode)
	if err != nil {
		return nil, storeErr(err)
	}
	if session == nil || session.Status != model.StatusActive {
		return nil, ErrNoActiveSession
	}
	if !session.HasItem(itemID) {
		return nil, ErrSessionMismatch
	}

	outcome := model.OutcomePlayed
	if choice == model.ChoiceSkip {
		outcome = model.OutcomeSkipped
	}
	applied, err := s.finalize(ctx, session, outcome, model.FinalizedByHost)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrNoActiveSession
	}
	return &VoteResult{
		Votes:     session.Votes,
		Finalized: true,
		Outcome:   outcome,
	}, nil
}

// DecideOutcome maps a tally to an outcome. A tie counts as skipped.
func DecideOutcome(v model.Votes) model.Outcome {
	if v.Confirm > v.Skip {
		return model.OutcomePlayed
	}
	return model.OutcomeSkipped
}

// finalize applies outcome exactly once per session. It reports false when
// another caller already closed the round.
func (s *VoteService) finalize(ctx context.Context, session *model.Session, outcome model.Outcome, by model.FinalizedBy) (bool, error) {
	scope := session.RoomCode
	logger := log.With().Str("room", scope).Str("session", session.ID).Logger()

	claimed, err := s.sessions.ClaimFinalize(ctx, scope, session.ID)
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err)
	}
	if !claimed {
		return false, nil
	}

	itemID, itemName := "", ""
	if session.ItemID != nil {
		itemID = *session.ItemID
	}
	if session.ItemName != nil {
		itemName = *session.ItemName
	}

	field := cache.CounterPlayed
	if outcome == model.OutcomeSkipped {
		field = cache.CounterSkipped
	}
	counters, err := s.items.Increment(ctx, scope, itemID, field)
	if err != nil {
		if rerr := s.sessions.ReleaseFinalize(context.WithoutCancel(ctx), scope, session.ID); rerr != nil {
			logger.Error().Err(rerr).Msg("failed to release finalize claim")
		}
		return false, storeErr(err)
	}

	// the outcome is committed from here on; later failures are logged only
	ctx = context.WithoutCancel(ctx)
	if err := s.items.SetWeight(ctx, scope, itemID, selection.Weight(counters)); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to persist weight")
	}

	now := s.now()
	entry := model.HistoryEntry{
		ItemID:    itemID,
		ItemName:  itemName,
		Timestamp: now.UnixMilli(),
		Status:    outcome,
	}
	history, herr := s.history.Push(ctx, scope, entry)
	if herr != nil {
		logger.Error().Err(herr).Msg("failed to write history")
	}

	if _, err := s.sessions.Delete(ctx, scope, session.ID); err != nil {
		logger.Error().Err(err).Msg("failed to delete finalized session")
	}

	emit(ctx, s.broadcaster, scope, model.NewSessionClosed(*session, outcome))
	if herr == nil {
		emit(ctx, s.broadcaster, scope, model.NewHistoryUpdated(entry, history))
	}

	s.archive(ctx, &model.Round{
		ID:          session.ID,
		RoomCode:    scope,
		ItemID:      itemID,
		ItemName:    itemName,
		Outcome:     outcome,
		Votes:       session.Votes,
		FinalizedBy: by,
		CreatedAt:   time.UnixMilli(session.CreatedAt).UTC(),
		FinalizedAt: now.UTC(),
	})

	logger.Info().
		Str("item", itemID).
		Str("outcome", string(outcome)).
		Str("by", string(by)).
		Msg("round finalized")
	return true, nil
}

func (s *VoteService) archive(ctx context.Context, round *model.Round) {
	if s.rounds == nil {
		return
	}
	if err := s.rounds.Save(ctx, round); err != nil {
		log.Warn().Err(err).Str("room", round.RoomCode).Str("session", round.ID).Msg("failed to archive round")
	}
}

// memberCount is the room's roster size, at least 1. The global scope has
// no roster and counts as a single voter.
func (s *VoteService) memberCount(ctx context.Context, roomCode string) (int, error) {
	if roomCode == "" {
		return 1, nil
	}
	room, err := s.rooms.Get(ctx, roomCode)
	if err != nil {
		return 0, storeErr(err)
	}
	if room == nil {
		return 0, ErrRoomNotFound
	}
	return max(len(room.Members), 1), nil
}

// Rounds lists archived rounds of a room, newest first
func (s *VoteService) Rounds(ctx context.Context, roomCode string, limit int64) ([]model.Round, error) {
	if s.rounds == nil {
		return []model.Round{}, nil
	}
	rounds, err := s.rounds.ListByRoom(ctx, roomCode, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return rounds, nil
}
