package handler

import (
	"encoding/json"
	"net/http"

	"gamepicker/internal/service"
	"gamepicker/internal/transport/rest/middleware"
)

// RoomHandler handles room and membership endpoints
type RoomHandler struct {
	roomSvc     *service.RoomService
	presenceSvc *service.PresenceService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, presenceSvc *service.PresenceService) *RoomHandler {
	return &RoomHandler{
		roomSvc:     roomSvc,
		presenceSvc: presenceSvc,
	}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.roomSvc.CreateRoom(r.Context(), req.Name, req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoom(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// Delete handles DELETE /v1/rooms/{code}
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.DeleteRoom(r.Context(), roomCode(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RenameRequest is the request body for renaming a room
type RenameRequest struct {
	Name string `json:"name"`
}

// Rename handles PUT /v1/rooms/{code}/name
func (h *RoomHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.Rename(r.Context(), roomCode(r), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	Username string `json:"username"`
}

// Join handles POST /v1/rooms/{code}/join. A caller that already holds a
// member token for the room is renamed instead of added twice.
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.roomSvc.Join(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Leave handles POST /v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.Leave(r.Context(), roomCode(r), middleware.GetMemberID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TargetRequest names the member a host action applies to
type TargetRequest struct {
	UserID string `json:"userId"`
}

// Kick handles POST /v1/rooms/{code}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	room, err := h.roomSvc.Kick(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// TransferHost handles POST /v1/rooms/{code}/host/transfer
func (h *RoomHandler) TransferHost(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	room, err := h.roomSvc.TransferHost(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// ClaimHost handles POST /v1/rooms/{code}/host/claim
func (h *RoomHandler) ClaimHost(w http.ResponseWriter, r *http.Request) {
	room, err := h.presenceSvc.ClaimHost(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// SyncPresence handles POST /v1/rooms/{code}/presence/sync
func (h *RoomHandler) SyncPresence(w http.ResponseWriter, r *http.Request) {
	result, err := h.presenceSvc.Reconcile(r.Context(), roomCode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
