package rest

import (
	"context"
	"net/http"
	"time"

	"gamepicker/internal/service"
	"gamepicker/internal/transport/rest/handler"
	"gamepicker/internal/transport/rest/middleware"
	"gamepicker/internal/transport/ws"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	RoomService     *service.RoomService
	ItemService     *service.ItemService
	PickService     *service.PickService
	VoteService     *service.VoteService
	PresenceService *service.PresenceService
	WSHandler       *ws.Handler

	// Ping checks the backing store for /health
	Ping           func(ctx context.Context) error
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.PresenceService)
	itemHandler := handler.NewItemHandler(c.ItemService, c.RoomService)
	sessionHandler := handler.NewSessionHandler(c.PickService, c.VoteService, c.RoomService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.HandleFunc("/health", health(c.Ping)).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// WebSocket route (public with token in query param)
	if c.WSHandler != nil {
		v1.HandleFunc("/ws/rooms/{code}", c.WSHandler.RoomWS).Methods("GET")
	}

	// Routes that recognise a member token without requiring one
	open := v1.NewRoute().Subrouter()
	open.Use(authMW.OptionalMember)

	open.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET")
	open.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST")

	// Creator routes (require creator auth)
	creatorRoutes := v1.NewRoute().Subrouter()
	creatorRoutes.Use(authMW.RequireCreator)

	creatorRoutes.HandleFunc("/auth/password", authHandler.ChangePassword).Methods("POST")
	creatorRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST")
	creatorRoutes.HandleFunc("/rooms", roomHandler.List).Methods("GET")
	creatorRoutes.HandleFunc("/rooms/{code}", roomHandler.Delete).Methods("DELETE")
	creatorRoutes.HandleFunc("/rooms/{code}/name", roomHandler.Rename).Methods("PUT")
	creatorRoutes.HandleFunc("/rooms/{code}/clone", itemHandler.Clone).Methods("POST")
	creatorRoutes.HandleFunc("/catalog/items", itemHandler.List).Methods("GET")
	creatorRoutes.HandleFunc("/catalog/items", itemHandler.Add).Methods("POST")
	creatorRoutes.HandleFunc("/catalog/items/{itemId}", itemHandler.Remove).Methods("DELETE")

	// Member routes (require a member token for the room in the path)
	memberRoutes := v1.NewRoute().Subrouter()
	memberRoutes.Use(authMW.RequireMember)

	memberRoutes.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/kick", roomHandler.Kick).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/host/transfer", roomHandler.TransferHost).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/host/claim", roomHandler.ClaimHost).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/presence/sync", roomHandler.SyncPresence).Methods("POST")

	memberRoutes.HandleFunc("/rooms/{code}/items", itemHandler.List).Methods("GET")
	memberRoutes.HandleFunc("/rooms/{code}/items", itemHandler.Add).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/items/{itemId}", itemHandler.Update).Methods("PUT")
	memberRoutes.HandleFunc("/rooms/{code}/items/{itemId}", itemHandler.Remove).Methods("DELETE")
	memberRoutes.HandleFunc("/rooms/{code}/stats", itemHandler.Stats).Methods("GET")
	memberRoutes.HandleFunc("/rooms/{code}/stats/reset", itemHandler.ResetStats).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/history", itemHandler.History).Methods("GET")

	memberRoutes.HandleFunc("/rooms/{code}/session", sessionHandler.Current).Methods("GET")
	memberRoutes.HandleFunc("/rooms/{code}/session", sessionHandler.Clear).Methods("DELETE")
	memberRoutes.HandleFunc("/rooms/{code}/session/pick", sessionHandler.Pick).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/session/vote", sessionHandler.Vote).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/session/finalize", sessionHandler.Finalize).Methods("POST")
	memberRoutes.HandleFunc("/rooms/{code}/rounds", sessionHandler.Rounds).Methods("GET")

	// CORS wraps the router so preflight requests never reach route matching
	return cors.Handler(corsOptions(c.AllowedOrigins))(r)
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
