package model

import (
	"strings"
	"time"
)

// Member is a room participant
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	JoinedAt int64  `json:"joinedAt"` // epoch millis
}

// JoinedWithin reports whether the member joined less than d before now
func (m Member) JoinedWithin(now time.Time, d time.Duration) bool {
	return m.JoinedAt > 0 && now.UnixMilli()-m.JoinedAt < d.Milliseconds()
}

type Room struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	HostID    string   `json:"hostId"`
	CreatedAt int64    `json:"createdAt"`
	Members   []Member `json:"members"`
}

// Member returns the member with id, if present
func (r *Room) Member(id string) (Member, bool) {
	for _, m := range r.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Room) IsHost(id string) bool {
	return id != "" && r.HostID == id
}

// HostPresent reports whether the stored host is still in the member list
func (r *Room) HostPresent() bool {
	if r.HostID == "" {
		return false
	}
	_, ok := r.Member(r.HostID)
	return ok
}

// RoomSummary is the list view of a room
type RoomSummary struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CreatedAt   int64  `json:"createdAt"`
	MemberCount int    `json:"memberCount"`
}

// RoomView is a room as seen by one caller
type RoomView struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	HostID      string   `json:"hostId"`
	IsHost      bool     `json:"isHost"`
	Members     []Member `json:"members"`
	MemberCount int      `json:"memberCount"`
}

// JoinResponse is returned when a member joins a room
type JoinResponse struct {
	MemberID string   `json:"memberId"`
	Token    string   `json:"token"`
	Room     RoomView `json:"room"`
}

// NormalizeRoomCode upper-cases and trims a user supplied code
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
