package server

import (
	"log/slog"
	"net/http"
	"tutor-realtime/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func toHTTPStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrNotChannelMember), errors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrInvalidCommand),
		errors.Is(err, errors.ErrUnknownCommand),
		errors.Is(err, errors.ErrMalformedFrame):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError hides internal failures behind a generic message.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := toHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}
