package service

import (
	"context"
	"errors"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/idgen"
	"gamepicker/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService handles creator login and member tokens
type AuthService struct {
	creds          cache.CredentialCache
	jwtSecret      []byte
	memberTokenTTL time.Duration
	now            func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(creds cache.CredentialCache, secret string, memberTokenTTL time.Duration) *AuthService {
	if memberTokenTTL <= 0 {
		memberTokenTTL = 24 * time.Hour
	}
	return &AuthService{
		creds:          creds,
		jwtSecret:      []byte(secret),
		memberTokenTTL: memberTokenTTL,
		now:            time.Now,
	}
}

// Login checks the creator password and returns a creator token.
// The first login on a fresh store sets the password.
func (s *AuthService) Login(ctx context.Context, password string) (*model.LoginResponse, error) {
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := s.creds.PasswordHash(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	created := false
	if hash == "" {
		newHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		created, err = s.creds.InitPasswordHash(ctx, string(newHash))
		if err != nil {
			return nil, storeErr(err)
		}
		if !created {
			// lost the race against another first login
			if hash, err = s.creds.PasswordHash(ctx); err != nil {
				return nil, storeErr(err)
			}
		}
	}
	if !created {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
	}

	creatorID := idgen.NewCreatorID()
	claims := &model.CreatorClaims{
		CreatorID: creatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:     token,
		CreatorID: creatorID,
		Created:   created,
	}, nil
}

// ChangePassword replaces the creator password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	if next == "" {
		return invalid("new password required")
	}
	hash, err := s.creds.PasswordHash(ctx)
	if err != nil {
		return storeErr(err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.creds.SetPasswordHash(ctx, string(newHash)); err != nil {
		return storeErr(err)
	}
	return nil
}

// ValidateCreatorToken validates a creator JWT and returns claims
func (s *AuthService) ValidateCreatorToken(tokenString string) (*model.CreatorClaims, error) {
	claims := &model.CreatorClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.CreatorID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateMemberToken creates a room-scoped token for a member
func (s *AuthService) GenerateMemberToken(roomCode, memberID string) (string, error) {
	now := s.now()
	claims := &model.MemberClaims{
		RoomCode: roomCode,
		MemberID: memberID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.memberTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateMemberToken validates a member JWT and returns claims
func (s *AuthService) ValidateMemberToken(tokenString string) (*model.MemberClaims, error) {
	claims := &model.MemberClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.RoomCode == "" || claims.MemberID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
