package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewULIDMonotonic(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	prev := NewULID(now)
	for i := 0; i < 100; i++ {
		next := NewULID(now)
		require.Greater(t, next, prev)
		prev = next
	}

	id, err := ulid.Parse(prev)
	require.NoError(t, err)
	require.Equal(t, uint64(now.UnixMilli()), id.Time())
}

func TestNewRoomCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.False(t, strings.ContainsAny(code, "01IO"))
	}
}

func TestPrefixedIDs(t *testing.T) {
	require.True(t, strings.HasPrefix(NewItemID(), "g_"))
	require.Len(t, NewMemberID(), len("u_")+8)
}
