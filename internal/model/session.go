package model

type SessionStatus string

const (
	StatusSpinning SessionStatus = "spinning"
	StatusActive   SessionStatus = "active"
)

// Choice is a member's vote on the picked item
type Choice string

const (
	ChoiceConfirm Choice = "confirm"
	ChoiceSkip    Choice = "skip"
)

func (c Choice) Valid() bool {
	return c == ChoiceConfirm || c == ChoiceSkip
}

type Votes struct {
	Confirm int64 `json:"confirm"`
	Skip    int64 `json:"skip"`
}

// Total is the number of votes cast so far
func (v Votes) Total() int64 {
	return v.Confirm + v.Skip
}

// Session is the in-flight pick of a room. ItemID and ItemName stay nil while spinning.
type Session struct {
	ID        string        `json:"id"`
	RoomCode  string        `json:"roomCode"`
	ItemID    *string       `json:"itemId"`
	ItemName  *string       `json:"itemName"`
	CreatedAt int64         `json:"createdAt"` // epoch millis
	Votes     Votes         `json:"votes"`
	Status    SessionStatus `json:"status"`
}

// HasItem reports whether the session has resolved to itemID
func (s *Session) HasItem(itemID string) bool {
	return s.ItemID != nil && *s.ItemID == itemID
}
