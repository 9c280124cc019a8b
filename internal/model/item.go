package model

import "time"

// Length is the play-length classification of an item
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// ParseLength normalizes a length, defaulting to medium for unknown values
func ParseLength(s string) Length {
	switch Length(s) {
	case LengthShort, LengthMedium, LengthLong:
		return Length(s)
	}
	return LengthMedium
}

// Counters tracks how often an item was picked, played and skipped
type Counters struct {
	Picks   int64 `json:"picks"`
	Played  int64 `json:"played"`
	Skipped int64 `json:"skipped"`
}

// Item is a selectable option (a board game)
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Length    Length    `json:"length"`
	CreatedAt time.Time `json:"createdAt"`
	Counters  Counters  `json:"stats"`
	Weight    float64   `json:"weight"`
}

// ItemStats is the stats overview for a catalog
type ItemStats struct {
	MostPlayed  []Item `json:"mostPlayed"`
	MostSkipped []Item `json:"mostSkipped"`
	AllItems    []Item `json:"allItems"`
}
