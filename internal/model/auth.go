package model

import "github.com/golang-jwt/jwt/v5"

// CreatorClaims are JWT claims for the room creator (admin surface)
type CreatorClaims struct {
	CreatorID string `json:"creatorId"`
	jwt.RegisteredClaims
}

// MemberClaims are JWT claims for room-scoped member tokens
type MemberClaims struct {
	RoomCode string `json:"roomCode"`
	MemberID string `json:"memberId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for creator login
type LoginRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest is the request body for rotating the creator password
type ChangePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token     string `json:"token"`
	CreatorID string `json:"creatorId"`
	Created   bool   `json:"created"` // first login set the password
}
