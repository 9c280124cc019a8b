package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestLoginFirstTimeSetsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := f.auth.Login(ctx, "hunter2")
	require.NoError(t, err)
	require.True(t, resp.Created)

	claims, err := f.auth.ValidateCreatorToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.CreatorID, claims.CreatorID)

	again, err := f.auth.Login(ctx, "hunter2")
	require.NoError(t, err)
	require.False(t, again.Created)

	_, err = f.auth.Login(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.auth.ChangePassword(ctx, "x", "y"), ErrInvalidCredentials)

	_, err := f.auth.Login(ctx, "old")
	require.NoError(t, err)
	require.ErrorIs(t, f.auth.ChangePassword(ctx, "nope", "new"), ErrInvalidCredentials)
	require.ErrorIs(t, f.auth.ChangePassword(ctx, "old", ""), ErrInvalidInput)
	require.NoError(t, f.auth.ChangePassword(ctx, "old", "new"))

	_, err = f.auth.Login(ctx, "old")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "new")
	require.NoError(t, err)
}

func TestMemberToken(t *testing.T) {
	f := newFixture(t)

	token, err := f.auth.GenerateMemberToken(testRoom, "u_1")
	require.NoError(t, err)

	claims, err := f.auth.ValidateMemberToken(token)
	require.NoError(t, err)
	require.Equal(t, testRoom, claims.RoomCode)
	require.Equal(t, "u_1", claims.MemberID)

	// member tokens are not creator tokens
	_, err = f.auth.ValidateCreatorToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.auth.ValidateMemberToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsOtherSecretsAndAlgorithms(t *testing.T) {
	f := newFixture(t)

	other := NewAuthService(nil, "another-secret", time.Hour)
	other.now = func() time.Time { return f.now }
	token, err := other.GenerateMemberToken(testRoom, "u_1")
	require.NoError(t, err)
	_, err = f.auth.ValidateMemberToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"roomCode": testRoom,
		"memberId": "u_1",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.auth.ValidateMemberToken(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}
