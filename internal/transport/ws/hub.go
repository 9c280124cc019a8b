package ws

import (
	"context"
	"encoding/json"
	"sync"

	"gamepicker/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MsgConnected is sent once to a socket right after it is accepted. It is
// not a room event and never crosses pub/sub.
const MsgConnected model.EventType = "connected"

const sendBuffer = 256

// Hub fans room events out to the websocket connections of that room.
// All routing happens on the Run goroutine, so events of one room reach
// every connection in the order they were delivered to the hub.
type Hub struct {
	rooms map[string]map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *roomMessage
	done       chan struct{}
}

// Connection is one subscriber of a room. Send is closed by the hub when
// the connection is unregistered or falls too far behind.
type Connection struct {
	ID       string
	RoomCode string
	MemberID string
	Send     chan []byte
}

type roomMessage struct {
	roomCode string
	data     []byte
}

// NewHub creates a hub. Call Run to start routing.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *roomMessage, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run routes messages until ctx is cancelled, then closes every connection
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for code, conns := range h.rooms {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.rooms, code)
			}
			h.mu.Unlock()
			return nil

		case conn := <-h.register:
			h.mu.Lock()
			if h.rooms[conn.RoomCode] == nil {
				h.rooms[conn.RoomCode] = make(map[*Connection]struct{})
			}
			h.rooms[conn.RoomCode][conn] = struct{}{}
			h.mu.Unlock()
			log.Debug().Str("room", conn.RoomCode).Str("member", conn.MemberID).Msg("ws subscribed")

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.rooms[msg.roomCode] {
				select {
				case conn.Send <- msg.data:
				default:
					// too slow to keep up; it reconnects and polls the current state
					log.Warn().Str("room", conn.RoomCode).Str("member", conn.MemberID).Msg("dropping slow ws connection")
					h.remove(conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(conn *Connection) {
	conns, ok := h.rooms[conn.RoomCode]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	close(conn.Send)
	if len(conns) == 0 {
		delete(h.rooms, conn.RoomCode)
	}
	log.Debug().Str("room", conn.RoomCode).Str("member", conn.MemberID).Msg("ws unsubscribed")
}

// Subscribe registers a new connection for the room and returns it.
// greeting, when non-nil, is queued before any room event.
func (h *Hub) Subscribe(roomCode, memberID string, greeting []byte) *Connection {
	conn := &Connection{
		ID:       uuid.NewString(),
		RoomCode: roomCode,
		MemberID: memberID,
		Send:     make(chan []byte, sendBuffer),
	}
	if greeting != nil {
		conn.Send <- greeting
	}
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
	return conn
}

// Unsubscribe removes the connection. Safe to call more than once.
func (h *Hub) Unsubscribe(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Deliver hands an encoded envelope to every connection of the room
func (h *Hub) Deliver(ctx context.Context, roomCode string, data []byte) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- &roomMessage{roomCode: roomCode, data: data}:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish encodes ev and delivers it locally (implements service.Broadcaster)
func (h *Hub) Publish(ctx context.Context, roomCode string, ev model.Event) error {
	data, err := model.Encode(ev)
	if err != nil {
		return err
	}
	return h.Deliver(ctx, roomCode, data)
}

// Count returns how many connections the room has
func (h *Hub) Count(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func greeting(roomCode, memberID string) []byte {
	payload, _ := json.Marshal(map[string]string{"roomCode": roomCode, "memberId": memberID})
	data, _ := json.Marshal(model.Envelope{Type: MsgConnected, Payload: payload})
	return data
}
