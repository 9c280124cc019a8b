package handler

import (
	"encoding/json"
	"net/http"

	"gamepicker/internal/service"
	"gamepicker/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// ItemHandler serves the item catalog. Routes without a {code} segment
// operate on the global catalog.
type ItemHandler struct {
	itemSvc *service.ItemService
	roomSvc *service.RoomService
}

// NewItemHandler creates a new item handler
func NewItemHandler(itemSvc *service.ItemService, roomSvc *service.RoomService) *ItemHandler {
	return &ItemHandler{
		itemSvc: itemSvc,
		roomSvc: roomSvc,
	}
}

// AddItemRequest is the request body for adding an item
type AddItemRequest struct {
	Name   string `json:"name"`
	Length string `json:"length"`
}

// List handles GET /v1/rooms/{code}/items and GET /v1/catalog/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemSvc.List(r.Context(), roomCode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"games": items})
}

// Add handles POST /v1/rooms/{code}/items and POST /v1/catalog/items
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemSvc.Add(r.Context(), roomCode(r), req.Name, req.Length)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /v1/rooms/{code}/items/{itemId}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemSvc.Update(r.Context(), roomCode(r), mux.Vars(r)["itemId"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Remove handles DELETE /v1/rooms/{code}/items/{itemId} and DELETE /v1/catalog/items/{itemId}
func (h *ItemHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.itemSvc.Remove(r.Context(), roomCode(r), mux.Vars(r)["itemId"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats handles GET /v1/rooms/{code}/stats
func (h *ItemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.itemSvc.Stats(r.Context(), roomCode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ResetStats handles POST /v1/rooms/{code}/stats/reset (host only)
func (h *ItemHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	room, err := h.roomSvc.GetRoom(r.Context(), code, middleware.GetMemberID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !room.IsHost {
		writeServiceError(w, service.ErrNotHost)
		return
	}

	n, err := h.itemSvc.ResetStats(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"reset": n})
}

// Clone handles POST /v1/rooms/{code}/clone
func (h *ItemHandler) Clone(w http.ResponseWriter, r *http.Request) {
	result, err := h.itemSvc.CloneGlobal(r.Context(), roomCode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// History handles GET /v1/rooms/{code}/history?limit=
func (h *ItemHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.itemSvc.History(r.Context(), roomCode(r), queryLimit(r, 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}
