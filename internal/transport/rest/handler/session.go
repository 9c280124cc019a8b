package handler

import (
	"encoding/json"
	"net/http"

	"gamepicker/internal/model"
	"gamepicker/internal/service"
	"gamepicker/internal/transport/rest/middleware"
)

// SessionHandler handles the pick and vote endpoints of a room
type SessionHandler struct {
	pickSvc *service.PickService
	voteSvc *service.VoteService
	roomSvc *service.RoomService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(pickSvc *service.PickService, voteSvc *service.VoteService, roomSvc *service.RoomService) *SessionHandler {
	return &SessionHandler{
		pickSvc: pickSvc,
		voteSvc: voteSvc,
		roomSvc: roomSvc,
	}
}

// Current handles GET /v1/rooms/{code}/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.pickSvc.Current(r.Context(), roomCode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Pick handles POST /v1/rooms/{code}/session/pick (host only)
func (h *SessionHandler) Pick(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)

	var opts service.PickOptions
	if err := decodeOptional(r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.GetRoom(r.Context(), code, middleware.GetMemberID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !room.IsHost {
		writeServiceError(w, service.ErrNotHost)
		return
	}

	session, err := h.pickSvc.StartPick(r.Context(), code, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// VoteRequest is the request body for voting on the picked item
type VoteRequest struct {
	ItemID string       `json:"itemId"`
	Choice model.Choice `json:"choice"`
}

// Vote handles POST /v1/rooms/{code}/session/vote
func (h *SessionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId and choice are required")
		return
	}

	result, err := h.voteSvc.CastVote(r.Context(), roomCode(r), req.ItemID, req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Finalize handles POST /v1/rooms/{code}/session/finalize (host only)
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId and choice are required")
		return
	}

	result, err := h.voteSvc.Finalize(r.Context(), roomCode(r), middleware.GetMemberID(r.Context()), req.ItemID, req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Clear handles DELETE /v1/rooms/{code}/session (host only)
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.pickSvc.Clear(r.Context(), roomCode(r), middleware.GetMemberID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Rounds handles GET /v1/rooms/{code}/rounds?limit=
func (h *SessionHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.voteSvc.Rounds(r.Context(), roomCode(r), int64(queryLimit(r, 20)))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds})
}
