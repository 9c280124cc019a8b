package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gamepicker/internal/model"
	"gamepicker/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
	maxMessageSize  = 512
	presenceWait    = 2 * time.Second
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	authSvc  *service.AuthService
	roomSvc  *service.RoomService
	presence *service.PresenceService
	upgrader websocket.Upgrader

	pingPeriod time.Duration
	pongWait   time.Duration
}

// NewHandler creates a new WebSocket handler. checkOrigin may be nil to
// accept every origin.
func NewHandler(hub *Hub, authSvc *service.AuthService, roomSvc *service.RoomService, presence *service.PresenceService, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:      hub,
		authSvc:  authSvc,
		roomSvc:  roomSvc,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		pingPeriod: (defaultPongWait * 9) / 10,
		pongWait:   defaultPongWait,
	}
}

// SetHeartbeat sets how often each socket is pinged. Every pong refreshes
// presence, so the presence stale window must be longer than every.
func (h *Handler) SetHeartbeat(every time.Duration) {
	if every <= 0 {
		return
	}
	h.pingPeriod = every
	h.pongWait = every + writeWait
}

// RoomWS handles GET /v1/ws/rooms/{code}?token=
func (h *Handler) RoomWS(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeRoomCode(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateMemberToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.RoomCode != code {
		http.Error(w, "token not valid for this room", http.StatusForbidden)
		return
	}

	room, err := h.roomSvc.GetRoom(r.Context(), code, claims.MemberID)
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if !isMember(room.Members, claims.MemberID) {
		http.Error(w, "not a room member", http.StatusForbidden)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}

	conn := h.hub.Subscribe(code, claims.MemberID, greeting(code, claims.MemberID))
	h.touch(conn, h.presence.Enter)

	log.Info().Str("room", code).Str("member", claims.MemberID).Msg("member connected via websocket")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unsubscribe(conn)
		h.touch(conn, h.presence.Exit)
		wsConn.Close()
		log.Info().Str("room", conn.RoomCode).Str("member", conn.MemberID).Msg("member disconnected")
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(h.pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(h.pongWait))
		h.touch(conn, h.presence.Heartbeat)
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("room", conn.RoomCode).Msg("websocket error")
			}
			break
		}
		// any client frame counts as a heartbeat
		h.touch(conn, h.presence.Heartbeat)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// touch runs a presence update with its own short deadline; presence is
// best effort and never tears down the socket.
func (h *Handler) touch(conn *Connection, fn func(ctx context.Context, roomCode, memberID, connID string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceWait)
	defer cancel()
	if err := fn(ctx, conn.RoomCode, conn.MemberID, conn.ID); err != nil {
		log.Warn().Err(err).Str("room", conn.RoomCode).Str("member", conn.MemberID).Msg("presence update failed")
	}
}

func isMember(members []model.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
