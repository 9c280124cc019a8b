package model

import "time"

type FinalizedBy string

const (
	FinalizedByVote FinalizedBy = "vote"
	FinalizedByHost FinalizedBy = "host"
)

// Round is the durable archive record of a finalized session
type Round struct {
	ID          string      `json:"id" bson:"_id"`
	RoomCode    string      `json:"roomCode" bson:"roomCode"`
	ItemID      string      `json:"itemId" bson:"itemId"`
	ItemName    string      `json:"itemName" bson:"itemName"`
	Outcome     Outcome     `json:"outcome" bson:"outcome"`
	Votes       Votes       `json:"votes" bson:"votes"`
	FinalizedBy FinalizedBy `json:"finalizedBy" bson:"finalizedBy"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	FinalizedAt time.Time   `json:"finalizedAt" bson:"finalizedAt"`
}
