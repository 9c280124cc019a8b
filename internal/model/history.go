package model

// Outcome is how a finalized round ended
type Outcome string

const (
	OutcomePlayed  Outcome = "played"
	OutcomeSkipped Outcome = "skipped"
	OutcomeCleared Outcome = "cleared" // host reset, never written to history
)

// HistoryLimit bounds the per-room history list
const HistoryLimit = 50

type HistoryEntry struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Timestamp int64   `json:"timestamp"` // epoch millis
	Status    Outcome `json:"status"`
}
