package cache

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSessionMismatch = errors.New("session mismatch")
	ErrFinalizing      = errors.New("session is finalizing")
	ErrConflict        = errors.New("concurrent update, retries exhausted")
)

const (
	roomsListKey       = "rooms:list"
	creatorPasswordKey = "room_creator:password"
)

// prefix returns the keyspace prefix for a room. An empty code addresses the
// global catalog used before rooms existed.
func prefix(roomCode string) string {
	if roomCode == "" {
		return ""
	}
	return fmt.Sprintf("room:%s:", roomCode)
}

func itemIDsKey(scope string) string   { return prefix(scope) + "games:ids" }
func itemKey(scope, id string) string  { return prefix(scope) + "game:" + id }
func statsKey(scope, id string) string { return prefix(scope) + "stats:game:" + id }
func historyKey(scope string) string   { return prefix(scope) + "game:history" }
func sessionKey(scope string) string   { return prefix(scope) + "game:session" }
func roomKey(code string) string       { return fmt.Sprintf("room:%s", code) }
func presenceKey(code string) string   { return fmt.Sprintf("room:%s:presence", code) }
