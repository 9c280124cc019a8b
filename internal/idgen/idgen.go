package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexically sortable id stamped with t
func NewULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.UTC()), entropy).String()
}

func NewItemID() string {
	return "g_" + uuid.New().String()[:8]
}

func NewMemberID() string {
	return "u_" + uuid.New().String()[:8]
}

func NewCreatorID() string {
	return "creator_" + uuid.New().String()[:8]
}

// NewRoomCode creates a 6-char code without ambiguous characters (0/O, 1/I)
func NewRoomCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	b := make([]byte, codeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = chars[int(b[i])%len(chars)]
	}
	return string(b), nil
}
