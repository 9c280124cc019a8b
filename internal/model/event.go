package model

import "encoding/json"

// EventType is the discriminator carried by every realtime message
type EventType string

const (
	EventSessionSpinning EventType = "session_spinning"
	EventSessionActive   EventType = "session_active"
	EventVotesUpdated    EventType = "votes_updated"
	EventSessionClosed   EventType = "session_closed"
	EventHistoryUpdated  EventType = "history_updated"
	EventMembersUpdated  EventType = "members_updated"
	EventHostTransferred EventType = "host_transferred"
	EventUserKicked      EventType = "user_kicked"
)

// Event is the closed set of room events. Only the types in this file implement it.
type Event interface {
	Type() EventType
	sealed()
}

type SessionSpinning struct {
	Session Session `json:"session"`
}

type SessionActive struct {
	Session Session `json:"session"`
}

// VotesUpdated carries the tally after a vote that left the round open. A
// vote racing the closing one may be announced after session_closed, so
// clients drop tallies for a session id they already saw closed.
type VotesUpdated struct {
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
	Votes     Votes  `json:"votes"`
}

type SessionClosed struct {
	SessionID string  `json:"sessionId"`
	ItemID    string  `json:"itemId,omitempty"`
	ItemName  string  `json:"itemName,omitempty"`
	Outcome   Outcome `json:"outcome"`
	Votes     Votes   `json:"votes"`
}

type HistoryUpdated struct {
	Entry   HistoryEntry   `json:"entry"`
	History []HistoryEntry `json:"history"`
}

type MembersUpdated struct {
	Members []Member `json:"members"`
}

type HostTransferred struct {
	NewHostID string  `json:"newHostId"`
	OldHostID *string `json:"oldHostId"`
}

type UserKicked struct {
	UserID string `json:"userId"`
}

func NewSessionSpinning(s Session) SessionSpinning { return SessionSpinning{Session: s} }
func NewSessionActive(s Session) SessionActive     { return SessionActive{Session: s} }

func NewVotesUpdated(sessionID, itemID string, v Votes) VotesUpdated {
	return VotesUpdated{SessionID: sessionID, ItemID: itemID, Votes: v}
}

func NewSessionClosed(s Session, outcome Outcome) SessionClosed {
	ev := SessionClosed{SessionID: s.ID, Outcome: outcome, Votes: s.Votes}
	if s.ItemID != nil {
		ev.ItemID = *s.ItemID
	}
	if s.ItemName != nil {
		ev.ItemName = *s.ItemName
	}
	return ev
}

func NewHistoryUpdated(entry HistoryEntry, history []HistoryEntry) HistoryUpdated {
	return HistoryUpdated{Entry: entry, History: history}
}

func NewMembersUpdated(members []Member) MembersUpdated {
	if members == nil {
		members = []Member{}
	}
	return MembersUpdated{Members: members}
}

// NewHostTransferred builds a host change event; oldHostID is empty for a claim
func NewHostTransferred(newHostID, oldHostID string) HostTransferred {
	ev := HostTransferred{NewHostID: newHostID}
	if oldHostID != "" {
		ev.OldHostID = &oldHostID
	}
	return ev
}

func NewUserKicked(userID string) UserKicked { return UserKicked{UserID: userID} }

func (SessionSpinning) Type() EventType { return EventSessionSpinning }
func (SessionActive) Type() EventType   { return EventSessionActive }
func (VotesUpdated) Type() EventType    { return EventVotesUpdated }
func (SessionClosed) Type() EventType   { return EventSessionClosed }
func (HistoryUpdated) Type() EventType  { return EventHistoryUpdated }
func (MembersUpdated) Type() EventType  { return EventMembersUpdated }
func (HostTransferred) Type() EventType { return EventHostTransferred }
func (UserKicked) Type() EventType      { return EventUserKicked }

func (SessionSpinning) sealed() {}
func (SessionActive) sealed()   {}
func (VotesUpdated) sealed()    {}
func (SessionClosed) sealed()   {}
func (HistoryUpdated) sealed()  {}
func (MembersUpdated) sealed()  {}
func (HostTransferred) sealed() {}
func (UserKicked) sealed()      {}

// Envelope is the wire format shared by the pub/sub relay and websocket clients
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps an event in its envelope
func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.Type(), Payload: payload})
}

// Decode parses an envelope back into its concrete event
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case EventSessionSpinning:
		return decodePayload[SessionSpinning](env.Payload)
	case EventSessionActive:
		return decodePayload[SessionActive](env.Payload)
	case EventVotesUpdated:
		return decodePayload[VotesUpdated](env.Payload)
	case EventSessionClosed:
		return decodePayload[SessionClosed](env.Payload)
	case EventHistoryUpdated:
		return decodePayload[HistoryUpdated](env.Payload)
	case EventMembersUpdated:
		return decodePayload[MembersUpdated](env.Payload)
	case EventHostTransferred:
		return decodePayload[HostTransferred](env.Payload)
	case EventUserKicked:
		return decodePayload[UserKicked](env.Payload)
	}
	return nil, &UnknownEventError{Type: env.Type}
}

func decodePayload[T Event](raw json.RawMessage) (Event, error) {
	var e T
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return e, nil
}

type UnknownEventError struct {
	Type EventType
}

func (e *UnknownEventError) Error() string {
	return "unknown event type: " + string(e.Type)
}
