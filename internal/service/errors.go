package service

import (
	"errors"
	"fmt"
)

var (
	ErrNoCandidatesAvailable = errors.New("no candidates available")
	ErrNoActiveSession       = errors.New("no active session")
	ErrSessionMismatch       = errors.New("session mismatch")
	ErrSessionInProgress     = errors.New("a session is already in progress")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrRoomNotFound          = errors.New("room not found")
	ErrItemNotFound          = errors.New("item not found")
	ErrNotHost               = errors.New("only the host can do this")
	ErrHostPresent           = errors.New("room already has a host")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrNotMember             = errors.New("not a room member")
	ErrCannotKickSelf        = errors.New("cannot kick yourself")
	ErrInvalidChoice         = errors.New("choice must be confirm or skip")
	ErrInvalidInput          = errors.New("invalid input")
)

// storeErr marks an infrastructure failure; callers may retry the whole operation
func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
