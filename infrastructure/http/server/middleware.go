package server

import (
	"fmt"
	"net/http"
	"time"
	"tutor-realtime/auth"
	"tutor-realtime/domain"
	"tutor-realtime/errors"

	"github.com/gorilla/mux"
)

// authenticate rejects the request with 401 before any handler runs,
// so a WebSocket is never upgraded for an unknown caller.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			writeError(s.log, w, errors.ErrUnauthenticated)
			return
		}
		userID, err := s.auth.Authenticate(token)
		if err != nil {
			s.log.Debug("Authentication failed", "path", r.URL.Path, "error", err)
			writeError(s.log, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("Panic recovered in HTTP handler", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

// streamUser is the authenticated user of a stream request.
// Legacy routes carry a user id in the path, it must be the caller's own.
func streamUser(r *http.Request) (domain.UserID, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", errors.ErrUnauthenticated
	}
	if pathUser, ok := mux.Vars(r)["user_id"]; ok && domain.UserID(pathUser) != userID {
		return "", fmt.Errorf("%w: stream of %s requested by %s", errors.ErrForbidden, pathUser, userID)
	}
	return userID, nil
}
