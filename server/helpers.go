package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"HipHopLab/core/lyric"
	"HipHopLab/core/persist"
	"HipHopLab/logger"
)

var (
	// ErrTrackNotFound is returned for ids absent from the playlist.
	ErrTrackNotFound = errors.New("track not found")
	// ErrNoEditor is returned when no lyric editor session is open.
	ErrNoEditor = errors.New("no lyric editor open")
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps domain errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrTrackNotFound), errors.Is(err, ErrNoEditor):
		status = http.StatusNotFound
	case errors.Is(err, lyric.ErrCapturing), errors.Is(err, lyric.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, lyric.ErrNoLyrics):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, lyric.ErrLineOutOfRange), errors.Is(err, persist.ErrInvalidLanguage):
		status = http.StatusBadRequest
	case errors.Is(err, lyric.ErrClipboardUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", logger.ErrorField(err))
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// requireConfirm answers 428 unless the request carries confirm=true.
func requireConfirm(w http.ResponseWriter, r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !ok {
		writeError(w, http.StatusPreconditionRequired, "destructive action requires confirm=true")
	}
	return ok
}
