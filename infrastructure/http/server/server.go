package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"

	"github.com/gorilla/websocket"
)

// Authenticator resolves a bearer credential to a user.
type Authenticator interface {
	Authenticate(token string) (domain.UserID, error)
}

// StatsProvider feeds /debug/stats.
type StatsProvider func() any

type Options struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	ReadLimit       int64
	SSEPingInterval time.Duration
	// ReplyBufferSize bounds acks and errors waiting for the writer.
	ReplyBufferSize int
}

func DefaultOptions() Options {
	return Options{
		PingInterval:    54 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		ReadLimit:       512 * 1024,
		SSEPingInterval: 15 * time.Second,
		ReplyBufferSize: 16,
	}
}

// Server holds the HTTP side of the process: streams, commands and queries.
// It owns no state; everything lives in the hub.
type Server struct {
	log      *slog.Logger
	hub      contract.IHub
	chat     contract.IChatService
	auth     Authenticator
	stats    StatsProvider
	opts     Options
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(
	log *slog.Logger,
	hub contract.IHub,
	chat contract.IChatService,
	auth Authenticator,
	stats StatsProvider,
	opts Options,
) *Server {
	return &Server{
		log:   log,
		hub:   hub,
		chat:  chat,
		auth:  auth,
		stats: stats,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
