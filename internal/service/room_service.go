package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/idgen"
	"gamepicker/internal/model"
	"gamepicker/internal/repository"

	"github.com/rs/zerolog/log"
)

// RoomService handles room lifecycle and membership
type RoomService struct {
	rooms       cache.RoomCache
	authSvc     *AuthService
	broadcaster Broadcaster
	rounds      repository.RoundRepo
	now         func() time.Time
	newCode     func() (string, error)
}

// NewRoomService creates a new room service
func NewRoomService(rooms cache.RoomCache, authSvc *AuthService) *RoomService {
	return &RoomService{
		rooms:       rooms,
		authSvc:     authSvc,
		broadcaster: nopBroadcaster{},
		now:         time.Now,
		newCode:     idgen.NewRoomCode,
	}
}

// SetBroadcaster sets the realtime event sink
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// SetRoundArchive makes DeleteRoom also purge the room's archived rounds
func (s *RoomService) SetRoundArchive(rounds repository.RoundRepo) {
	s.rounds = rounds
}

// CreateRoom creates a room with the creator as its first member and host
func (s *RoomService) CreateRoom(ctx context.Context, name, username string) (*model.JoinResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "Admin"
	}

	now := s.now().UnixMilli()
	member := model.Member{ID: idgen.NewMemberID(), Username: username, JoinedAt: now}

	for attempts := 0; attempts < 10; attempts++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}
		room := &model.Room{
			Code:      code,
			Name:      strings.TrimSpace(name),
			HostID:    member.ID,
			CreatedAt: now,
			Members:   []model.Member{member},
		}
		if room.Name == "" {
			room.Name = "Room " + code
		}

		created, err := s.rooms.Create(ctx, room)
		if err != nil {
			return nil, storeErr(err)
		}
		if !created {
			continue
		}

		log.Info().Str("room", code).Str("host", member.ID).Msg("room created")
		return s.joinResponse(room, member.ID)
	}

	return nil, fmt.Errorf("failed to generate unique room code")
}

// GetRoom returns the room as seen by viewerID
func (s *RoomService) GetRoom(ctx context.Context, code, viewerID string) (*model.RoomView, error) {
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, storeErr(err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	view := roomView(room, viewerID)
	return &view, nil
}

// ListRooms returns a summary of every live room, newest first
func (s *RoomService) ListRooms(ctx context.Context) ([]model.RoomSummary, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]model.RoomSummary, len(rooms))
	for i, r := range rooms {
		out[i] = model.RoomSummary{
			Code:        r.Code,
			Name:        r.Name,
			CreatedAt:   r.CreatedAt,
			MemberCount: len(r.Members),
		}
	}
	return out, nil
}

// Join adds a member to the room. Passing the id of an existing member
// renames them instead. Usernames are unique per room.
func (s *RoomService) Join(ctx context.Context, code, memberID, username string) (*model.JoinResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username required")
	}
	if memberID == "" {
		memberID = idgen.NewMemberID()
	}
	joinedAt := s.now().UnixMilli()

	room, err := s.update(ctx, code, func(r *model.Room) (bool, error) {
		for i, m := range r.Members {
			if m.Username == username && m.ID != memberID {
				return false, ErrUsernameTaken
			}
			if m.ID == memberID {
				if m.Username == username {
					return false, nil
				}
				r.Members[i].Username = username
				return true, nil
			}
		}
		r.Members = append(r.Members, model.Member{ID: memberID, Username: username, JoinedAt: joinedAt})
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.broadcaster, code, model.NewMembersUpdated(room.Members))
	log.Info().Str("room", code).Str("member", memberID).Str("username", username).Msg("member joined")
	return s.joinResponse(room, memberID)
}

// Leave removes memberID from the roster. Leaving twice is not an error.
func (s *RoomService) Leave(ctx context.Context, code, memberID string) error {
	changed := false
	room, err := s.update(ctx, code, func(r *model.Room) (bool, error) {
		changed = removeMember(r, memberID)
		return changed, nil
	})
	if err != nil {
		return err
	}
	if changed {
		emit(ctx, s.broadcaster, code, model.NewMembersUpdated(room.Members))
		log.Info().Str("room", code).Str("member", memberID).Int("members", len(room.Members)).Msg("member left")
	}
	return nil
}

// Kick removes targetID from the room. Only the host may kick, and not themselves.
func (s *RoomService) Kick(ctx context.Context, code, callerID, targetID string) (*model.Room, error) {
	room, err := s.update(ctx, code, func(r *model.Room) (bool, error) {
		if !r.IsHost(callerID) {
			return false, ErrNotHost
		}
		if targetID == callerID {
			return false, ErrCannotKickSelf
		}
		if !removeMember(r, targetID) {
			return false, ErrNotMember
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.broadcaster, code, model.NewMembersUpdated(room.Members))
	emit(ctx, s.broadcaster, code, model.NewUserKicked(targetID))
	log.Info().Str("room", code).Str("member", targetID).Str("by", callerID).Msg("member kicked")
	return room, nil
}

// TransferHost hands the host role to another member
func (s *RoomService) TransferHost(ctx context.Context, code, callerID, newHostID string) (*model.Room, error) {
	room, err := s.update(ctx, code, func(r *model.Room) (bool, error) {
		if !r.IsHost(callerID) {
			return false, ErrNotHost
		}
		if _, ok := r.Member(newHostID); !ok {
			return false, ErrNotMember
		}
		if newHostID == callerID {
			return false, nil
		}
		r.HostID = newHostID
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if newHostID != callerID {
		emit(ctx, s.broadcaster, code, model.NewHostTransferred(newHostID, callerID))
		log.Info().Str("room", code).Str("from", callerID).Str("to", newHostID).Msg("host transferred")
	}
	return room, nil
}

// Rename changes the display name of a room
func (s *RoomService) Rename(ctx context.Context, code, name string) (*model.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name required")
	}
	return s.update(ctx, code, func(r *model.Room) (bool, error) {
		if r.Name == name {
			return false, nil
		}
		r.Name = name
		return true, nil
	})
}

// DeleteRoom removes the room and every key stored under it
func (s *RoomService) DeleteRoom(ctx context.Context, code string) error {
	ok, err := s.rooms.Exists(ctx, code)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrRoomNotFound
	}
	n, err := s.rooms.Delete(ctx, code)
	if err != nil {
		return storeErr(err)
	}
	log.Info().Str("room", code).Int64("keys", n).Msg("room deleted")

	if s.rounds != nil {
		purged, err := s.rounds.DeleteByRoom(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("failed to purge archived rounds")
			return nil
		}
		log.Debug().Str("room", code).Int64("rounds", purged).Msg("archived rounds purged")
	}
	return nil
}

// update wraps RoomCache.Update and maps cache errors to service errors
func (s *RoomService) update(ctx context.Context, code string, fn cache.UpdateFunc) (*model.Room, error) {
	room, _, err := s.rooms.Update(ctx, code, fn)
	switch {
	case err == nil:
		return room, nil
	case errors.Is(err, cache.ErrNotFound):
		return nil, ErrRoomNotFound
	case isDomainErr(err):
		return nil, err
	default:
		return nil, storeErr(err)
	}
}

func (s *RoomService) joinResponse(room *model.Room, memberID string) (*model.JoinResponse, error) {
	token, err := s.authSvc.GenerateMemberToken(room.Code, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign member token: %w", err)
	}
	return &model.JoinResponse{
		MemberID: memberID,
		Token:    token,
		Room:     roomView(room, memberID),
	}, nil
}

func roomView(r *model.Room, viewerID string) model.RoomView {
	return model.RoomView{
		Code:        r.Code,
		Name:        r.Name,
		HostID:      r.HostID,
		IsHost:      r.IsHost(viewerID),
		Members:     r.Members,
		MemberCount: len(r.Members),
	}
}

func removeMember(r *model.Room, id string) bool {
	for i, m := range r.Members {
		if m.ID == id {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}

func isDomainErr(err error) bool {
	for _, target := range []error{ErrNotHost, ErrNotMember, ErrCannotKickSelf, ErrUsernameTaken, ErrHostPresent, ErrInvalidInput} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
