package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/sink"
)

var _ contract.IHub = (*Hub)(nil)

// Hub ties the registry, the subscriptions and presence together so a
// connection is always registered and subscribed, or neither.
// mu serialises connect and disconnect so a user going offline cannot
// strip the subscriptions of a connection opening at the same time.
type Hub struct {
	mu            sync.Mutex
	log           *slog.Logger
	registry      contract.IRegistry
	subscriptions contract.ISubscriptions
	presence      *PresenceTracker
	memberships   contract.IMembershipStore
}

func NewHub(
	log *slog.Logger,
	registry contract.IRegistry,
	subscriptions contract.ISubscriptions,
	presence *PresenceTracker,
	memberships contract.IMembershipStore,
) *Hub {
	return &Hub{
		log:           log,
		registry:      registry,
		subscriptions: subscriptions,
		presence:      presence,
		memberships:   memberships,
	}
}

// Connect registers a connection and subscribes the user to every
// channel it belongs to. The membership lookup runs before anything is
// registered: on failure the caller gets an error and no state is kept.
func (h *Hub) Connect(ctx context.Context, userID domain.UserID, transport sink.Transport) (*sink.Connection, error) {
	channels, err := h.memberships.ChannelIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load channel memberships of %s: %w", userID, err)
	}

	h.mu.Lock()
	conn := h.registry.Register(userID, transport)
	for _, channelID := range channels {
		h.subscriptions.Join(channelID, userID)
	}
	h.presence.Touch(userID)
	h.mu.Unlock()

	h.log.Info("User connected",
		"user_id", userID,
		"connection_id", conn.ID,
		"transport", transport,
		"channels", len(channels))
	return conn, nil
}

// Disconnect is safe to call after the registry already dropped the
// connection: subscriptions are cleaned once the user has none left.
func (h *Hub) Disconnect(userID domain.UserID, conn *sink.Connection) {
	h.mu.Lock()
	h.registry.Unregister(userID, conn)
	offline := !h.registry.IsOnline(userID)
	var left []domain.ChannelID
	if offline {
		left = h.subscriptions.LeaveAll(userID)
		h.presence.Forget(userID)
	}
	h.mu.Unlock()

	h.log.Info("User disconnected",
		"user_id", userID,
		"connection_id", conn.ID,
		"offline", offline,
		"channels_left", len(left))
}

// Join subscribes an online user. Membership must be checked by the caller.
func (h *Hub) Join(channelID domain.ChannelID, userID domain.UserID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.registry.IsOnline(userID) {
		return false
	}
	h.subscriptions.Join(channelID, userID)
	return true
}

func (h *Hub) Leave(channelID domain.ChannelID, userID domain.UserID) {
	h.subscriptions.Leave(channelID, userID)
}

func (h *Hub) Touch(userID domain.UserID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registry.IsOnline(userID) {
		h.presence.Touch(userID)
	}
}

func (h *Hub) OnlineUsers() []domain.UserID {
	return h.registry.OnlineUsers()
}

// OnlineMembers lists the subscribers of a channel holding a connection here.
func (h *Hub) OnlineMembers(channelID domain.ChannelID) []domain.UserID {
	online := []domain.UserID{}
	for _, userID := range h.subscriptions.Subscribers(channelID) {
		if h.registry.IsOnline(userID) {
			online = append(online, userID)
		}
	}
	return online
}

func (h *Hub) Status(userID domain.UserID) domain.Presence {
	return h.presence.Status(userID)
}
