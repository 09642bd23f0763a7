package sink

import (
	"github.com/google/uuid"
	"sync"
	"time"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
)

type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportSSE       Transport = "sse"
)

// Connection is the outbound side of one client session.
// The registry owns it: it is the only one calling Close.
// The transport adapter drains Events until Done is closed.
type Connection struct {
	ID        uuid.UUID
	UserID    domain.UserID
	Transport Transport
	CreatedAt time.Time

	events    chan event.BroadcastEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(userID domain.UserID, transport Transport, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Connection{
		ID:        uuid.New(),
		UserID:    userID,
		Transport: transport,
		CreatedAt: time.Now(),
		events:    make(chan event.BroadcastEvent, bufferSize),
		done:      make(chan struct{}),
	}
}

func (c *Connection) Events() <-chan event.BroadcastEvent {
	return c.events
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Offer enqueues without blocking.
// It returns false when the connection is closed or its buffer is full.
func (c *Connection) Offer(evt event.BroadcastEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- evt:
		return true
	default:
		return false
	}
}

// Close signals the adapter to stop. Safe to call more than once.
// The events channel is never closed so concurrent Offer cannot panic.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Pending is the number of buffered events not yet written.
func (c *Connection) Pending() int {
	return len(c.events)
}
