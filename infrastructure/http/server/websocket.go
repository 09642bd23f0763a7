package server

import (
	"context"
	"net/http"
	"strings"
	"time"
	"tutor-realtime/domain"
	"tutor-realtime/domain/chat"
	"tutor-realtime/domain/event"
	"tutor-realtime/sink"

	"github.com/gorilla/websocket"
)

type ackFrame struct {
	Type      string    `json:"type"`
	Event     chat.Kind `json:"event"`
	Response  chat.Ack  `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

type errorFrame struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// wsSession has one reader (the handler goroutine) and one writer.
// Only the writer touches the socket once the session runs.
type wsSession struct {
	server     *Server
	ws         *websocket.Conn
	conn       *sink.Connection
	userID     domain.UserID
	replies    chan any
	readerDone chan struct{}
	writerDone chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := streamUser(r)
	if err != nil {
		writeError(s.log, w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer func() { _ = ws.Close() }()

	conn, err := s.hub.Connect(r.Context(), userID, sink.TransportWebSocket)
	if err != nil {
		s.log.Error("WebSocket connection rejected", "user_id", userID, "error", err)
		_ = ws.WriteJSON(s.errorFrame("Unable to load channel memberships"))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "store unavailable"))
		return
	}
	defer s.hub.Disconnect(userID, conn)

	_ = ws.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
	if err := ws.WriteJSON(event.NewConnectionStatus(userID, s.now())); err != nil {
		return
	}

	session := &wsSession{
		server:     s,
		ws:         ws,
		conn:       conn,
		userID:     userID,
		replies:    make(chan any, s.opts.ReplyBufferSize),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go session.writeLoop()
	session.readLoop(r.Context())
	close(session.readerDone)
	<-session.writerDone
}

func (ss *wsSession) readLoop(ctx context.Context) {
	opts := ss.server.opts
	ss.ws.SetReadLimit(opts.ReadLimit)
	_ = ss.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	ss.ws.SetPongHandler(func(string) error {
		return ss.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		messageType, data, err := ss.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ss.server.log.Debug("WebSocket read ended", "user_id", ss.userID, "error", err)
			}
			return
		}
		_ = ss.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		if messageType != websocket.TextMessage {
			continue
		}
		ss.reply(ss.handleFrame(ctx, data))
	}
}

// handleFrame never fails the session: every error becomes an error frame.
func (ss *wsSession) handleFrame(ctx context.Context, data []byte) any {
	cmd, err := chat.Decode(data)
	if err != nil {
		return ss.server.errorFrame(frameMessage(err))
	}
	ack, err := ss.server.chat.Handle(ctx, ss.userID, cmd)
	if err != nil {
		if toHTTPStatus(err) == http.StatusInternalServerError {
			ss.server.log.Error("Command failed", "user_id", ss.userID, "type", cmd.Kind(), "error", err)
		}
		return ss.server.errorFrame(frameMessage(err))
	}
	return ackFrame{Type: "ack", Event: cmd.Kind(), Response: ack, Timestamp: ss.server.now()}
}

func (ss *wsSession) reply(frame any) {
	select {
	case ss.replies <- frame:
	case <-ss.writerDone:
	}
}

// writeLoop drains events and replies in order and keeps the peer alive.
// It closes the socket on exit, which unblocks the reader.
func (ss *wsSession) writeLoop() {
	opts := ss.server.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = ss.ws.Close()
		close(ss.writerDone)
	}()

	for {
		select {
		case <-ss.readerDone:
			return
		case <-ss.conn.Done():
			ss.server.log.Warn("Connection dropped by registry", "user_id", ss.userID, "connection_id", ss.conn.ID)
			_ = ss.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection dropped"),
				time.Now().Add(opts.WriteWait))
			return
		case evt := <-ss.conn.Events():
			if err := ss.write(evt); err != nil {
				return
			}
		case frame := <-ss.replies:
			if err := ss.write(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ss.ws.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := ss.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ss *wsSession) write(frame any) error {
	_ = ss.ws.SetWriteDeadline(time.Now().Add(ss.server.opts.WriteWait))
	if err := ss.ws.WriteJSON(frame); err != nil {
		ss.server.log.Debug("WebSocket write failed", "user_id", ss.userID, "error", err)
		return err
	}
	return nil
}

func (s *Server) errorFrame(message string) errorFrame {
	return errorFrame{Type: "error", Message: message, Timestamp: s.now()}
}

// frameMessage is the client-facing text of a command error.
func frameMessage(err error) string {
	if toHTTPStatus(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
