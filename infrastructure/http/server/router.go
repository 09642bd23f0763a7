package server

import (
	"net/http"
	"tutor-realtime/observability"

	"github.com/gorilla/mux"
)

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanic, s.logRequest)

	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/debug/stats", s.handleStats).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	api.HandleFunc("/ws/{user_id}", s.handleWebSocket).Methods(http.MethodGet)
	api.HandleFunc("/sse", s.handleSSE).Methods(http.MethodGet)
	api.HandleFunc("/sse/{user_id}", s.handleSSE).Methods(http.MethodGet)

	api.HandleFunc("/channels/{channel_id}/messages", s.handlePostMessage).Methods(http.MethodPost)
	api.HandleFunc("/channels/{channel_id}/messages/{message_id}", s.handleEditMessage).Methods(http.MethodPatch)
	api.HandleFunc("/channels/{channel_id}/messages/{message_id}", s.handleDeleteMessage).Methods(http.MethodDelete)
	api.HandleFunc("/channels/{channel_id}/typing", s.handleTyping).Methods(http.MethodPost)
	api.HandleFunc("/channels/{channel_id}/read", s.handleReadReceipt).Methods(http.MethodPost)
	api.HandleFunc("/channels/{channel_id}/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/channels/{channel_id}/leave", s.handleLeave).Methods(http.MethodPost)
	api.HandleFunc("/messages/{message_id}/reactions", s.handleAddReaction).Methods(http.MethodPost)
	api.HandleFunc("/messages/{message_id}/reactions", s.handleRemoveReaction).Methods(http.MethodDelete)

	api.HandleFunc("/online-users", s.handleOnlineUsers).Methods(http.MethodGet)
	api.HandleFunc("/channel/{channel_id}/online-members", s.handleOnlineMembers).Methods(http.MethodGet)
	api.HandleFunc("/user/{user_id}/status", s.handleUserStatus).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats())
}
