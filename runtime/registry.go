package runtime

import (
	"log/slog"
	"slices"
	"sync"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
	"tutor-realtime/observability"
	"tutor-realtime/sink"

	"github.com/samber/lo"
)

const dropReasonSlowConsumer = "slow_consumer"

// PresenceChange is published when a user gets its first connection
// or loses its last one.
type PresenceChange struct {
	UserID domain.UserID
	Online bool
	At     time.Time
}

type connSet map[*sink.Connection]struct{}

var _ contract.IRegistry = (*Registry)(nil)

// Registry holds every open connection of this process, grouped by user.
// The lock only guards the maps: sends happen on a snapshot.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	connections map[domain.UserID]connSet
	bufferSize  int
	presence    chan PresenceChange
}

func NewRegistry(log *slog.Logger, bufferSize, presenceBufferSize int) *Registry {
	return &Registry{
		log:         log,
		connections: make(map[domain.UserID]connSet),
		bufferSize:  bufferSize,
		presence:    make(chan PresenceChange, presenceBufferSize),
	}
}

// PresenceChanges is drained by the presence worker.
func (r *Registry) PresenceChanges() <-chan PresenceChange {
	return r.presence
}

// Register adds a new connection for the user.
// The first connection of a user schedules an online presence change.
func (r *Registry) Register(userID domain.UserID, transport sink.Transport) *sink.Connection {
	conn := sink.NewConnection(userID, transport, r.bufferSize)

	r.mu.Lock()
	conns, ok := r.connections[userID]
	if !ok {
		conns = make(connSet)
		r.connections[userID] = conns
	}
	conns[conn] = struct{}{}
	online := len(r.connections)
	r.mu.Unlock()

	observability.ConnectionOpened(string(transport))
	observability.SetOnlineUsers(online)
	r.log.Debug("Connection registered", "user_id", userID, "connection_id", conn.ID, "transport", transport)

	if !ok {
		r.publish(PresenceChange{UserID: userID, Online: true, At: time.Now()})
	}
	return conn
}

// Unregister removes the connection and closes it.
// It returns true when it removed the user's last connection.
// Calling it twice for the same connection is a no-op.
func (r *Registry) Unregister(userID domain.UserID, conn *sink.Connection) bool {
	r.mu.Lock()
	conns, ok := r.connections[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := conns[conn]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(conns, conn)
	last := len(conns) == 0
	if last {
		delete(r.connections, userID)
	}
	online := len(r.connections)
	r.mu.Unlock()

	conn.Close()
	observability.ConnectionClosed(string(conn.Transport))
	observability.SetOnlineUsers(online)
	r.log.Debug("Connection unregistered", "user_id", userID, "connection_id", conn.ID)

	if last {
		r.publish(PresenceChange{UserID: userID, Online: false, At: time.Now()})
	}
	return last
}

// Send enqueues the event on every connection of the user.
// A connection whose buffer is full is dropped, the others still receive it.
// It returns the number of connections that accepted the event.
func (r *Registry) Send(userID domain.UserID, evt event.BroadcastEvent) int {
	r.mu.RLock()
	conns := lo.Keys(r.connections[userID])
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if conn.Offer(evt) {
			delivered++
			continue
		}
		if conn.Closed() {
			continue
		}
		r.log.Warn("Dropping slow connection",
			"user_id", userID,
			"connection_id", conn.ID,
			"transport", conn.Transport,
			"event_type", evt.Type)
		observability.ConnectionDropped(dropReasonSlowConsumer)
		r.Unregister(userID, conn)
	}
	if delivered > 0 {
		observability.EventDelivered(string(evt.Type), delivered)
	}
	return delivered
}

func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	users := lo.Keys(r.connections)
	r.mu.RUnlock()
	slices.Sort(users)
	return users
}

func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[userID]
	return ok
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, conns := range r.connections {
		count += len(conns)
	}
	return count
}

// Connections returns how many connections the user holds here.
func (r *Registry) Connections(userID domain.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[userID])
}

// publish never blocks a connect or disconnect path.
func (r *Registry) publish(change PresenceChange) {
	select {
	case r.presence <- change:
	default:
		r.log.Warn("Presence queue full, change dropped", "user_id", change.UserID, "online", change.Online)
	}
}
