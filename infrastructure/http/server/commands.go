package server

import (
	"encoding/json"
	"io"
	"net/http"
	"tutor-realtime/auth"
	"tutor-realtime/domain/chat"
	"tutor-realtime/errors"

	"github.com/gorilla/mux"
)

const maxCommandBody = 64 * 1024

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindNewMessage, http.StatusCreated)
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindEditMessage, http.StatusOK)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindDeleteMessage, http.StatusOK)
}

func (s *Server) handleTyping(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindTyping, http.StatusOK)
}

func (s *Server) handleReadReceipt(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindReadReceipt, http.StatusOK)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindJoinChannel, http.StatusOK)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindLeaveChannel, http.StatusOK)
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindAddReaction, http.StatusCreated)
}

func (s *Server) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, chat.KindRemoveReaction, http.StatusOK)
}

// command runs the same ChatService path as a WebSocket frame.
// Path variables win over body fields of the same name.
func (s *Server) command(w http.ResponseWriter, r *http.Request, kind chat.Kind, okStatus int) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(s.log, w, errors.ErrUnauthenticated)
		return
	}
	data, err := commandBody(r)
	if err != nil {
		writeError(s.log, w, err)
		return
	}
	cmd, err := chat.DecodeData(kind, data)
	if err != nil {
		writeError(s.log, w, err)
		return
	}
	ack, err := s.chat.Handle(r.Context(), userID, cmd)
	if err != nil {
		writeError(s.log, w, err)
		return
	}
	writeJSON(w, okStatus, ack)
}

func commandBody(r *http.Request) ([]byte, error) {
	fields := make(map[string]any)
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
	if err != nil {
		return nil, errors.ErrMalformedFrame
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, errors.ErrMalformedFrame
		}
	}
	// a literal null body leaves the map nil
	if fields == nil {
		fields = make(map[string]any)
	}
	for name, value := range mux.Vars(r) {
		fields[name] = value
	}
	return json.Marshal(fields)
}
