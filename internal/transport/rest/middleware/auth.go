package middleware

import (
	"context"
	"net/http"
	"strings"

	"gamepicker/internal/model"
	"gamepicker/internal/service"

	"github.com/gorilla/mux"
)

type contextKey string

const (
	CreatorIDKey contextKey = "creatorId"
	MemberIDKey  contextKey = "memberId"
	RoomCodeKey  contextKey = "roomCode"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireCreator validates the creator JWT from the Authorization header
func (m *AuthMiddleware) RequireCreator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateCreatorToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CreatorIDKey, claims.CreatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireMember validates a room-scoped member JWT from the Authorization
// header or the token query param. The token must belong to the room in the path.
func (m *AuthMiddleware) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateMemberToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		if !matchesRoom(r, claims.RoomCode) {
			http.Error(w, `{"error":"token not valid for this room"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(withMember(r.Context(), claims)))
	})
}

// OptionalMember attaches member claims when a valid token for the path's
// room is present and passes the request through untouched otherwise.
func (m *AuthMiddleware) OptionalMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractBearerToken(r); token != "" {
			if claims, err := m.authSvc.ValidateMemberToken(token); err == nil && matchesRoom(r, claims.RoomCode) {
				r = r.WithContext(withMember(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func withMember(ctx context.Context, claims *model.MemberClaims) context.Context {
	ctx = context.WithValue(ctx, MemberIDKey, claims.MemberID)
	return context.WithValue(ctx, RoomCodeKey, claims.RoomCode)
}

func matchesRoom(r *http.Request, roomCode string) bool {
	code, ok := mux.Vars(r)["code"]
	if !ok {
		return true
	}
	return model.NormalizeRoomCode(code) == roomCode
}

// GetCreatorID extracts creator ID from context
func GetCreatorID(ctx context.Context) string {
	if v := ctx.Value(CreatorIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetMemberID extracts member ID from context
func GetMemberID(ctx context.Context) string {
	if v := ctx.Value(MemberIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetRoomCode extracts room code from context
func GetRoomCode(ctx context.Context) string {
	if v := ctx.Value(RoomCodeKey); v != nil {
		return v.(string)
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
