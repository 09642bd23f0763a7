package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"tutor-realtime/domain/event"
	"tutor-realtime/sink"
)

// handleSSE streams events one way. Clients send commands through the
// command endpoints.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	userID, err := streamUser(r)
	if err != nil {
		writeError(s.log, w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(s.log, w, fmt.Errorf("streaming unsupported by response writer"))
		return
	}

	conn, err := s.hub.Connect(r.Context(), userID, sink.TransportSSE)
	if err != nil {
		s.log.Error("SSE connection rejected", "user_id", userID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Unable to load channel memberships"})
		return
	}
	defer s.hub.Disconnect(userID, conn)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSEData(w, event.NewConnectionStatus(userID, s.now())); err != nil {
		return
	}
	flusher.Flush()

	idle := time.NewTimer(s.opts.SSEPingInterval)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("SSE client went away", "user_id", userID, "connection_id", conn.ID)
			return
		case <-conn.Done():
			s.log.Warn("Connection dropped by registry", "user_id", userID, "connection_id", conn.ID)
			return
		case evt := <-conn.Events():
			if err := writeSSEData(w, evt); err != nil {
				return
			}
			flusher.Flush()
		case <-idle.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
		idle.Reset(s.opts.SSEPingInterval)
	}
}

func writeSSEData(w http.ResponseWriter, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
