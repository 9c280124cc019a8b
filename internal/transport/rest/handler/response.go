package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gamepicker/internal/model"
	"gamepicker/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error().Err(err).Msg("store unavailable")
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, service.ErrNotMember):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoCandidatesAvailable),
		errors.Is(err, service.ErrSessionMismatch),
		errors.Is(err, service.ErrSessionInProgress),
		errors.Is(err, service.ErrHostPresent),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrCannotKickSelf),
		errors.Is(err, service.ErrInvalidChoice),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	}
	log.Error().Err(err).Msg("unhandled service error")
	return http.StatusInternalServerError
}

func roomCode(r *http.Request) string {
	return model.NormalizeRoomCode(mux.Vars(r)["code"])
}

// queryLimit reads ?limit=, falling back to def when absent or malformed
func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// decodeOptional decodes a JSON body into v, accepting an empty body
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
