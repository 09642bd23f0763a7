package event

import (
	"time"
	"tutor-realtime/domain"
)

// Type is the closed set of events pushed to clients.
type Type string

const (
	NewMessage      Type = "new_message"
	MessageUpdated  Type = "message_updated"
	MessageDeleted  Type = "message_deleted"
	ReactionAdded   Type = "reaction_added"
	ReactionRemoved Type = "reaction_removed"
	Typing          Type = "typing"
	ReadReceipt     Type = "read_receipt"
	Presence        Type = "presence"
	// Connection is emitted once by a transport adapter, never routed.
	Connection Type = "connection"
)

// BroadcastEvent is the unit delivered to connections.
// It targets either a channel (ChannelID) or a single user (UserID).
type BroadcastEvent struct {
	Type      Type             `json:"type"`
	ChannelID domain.ChannelID `json:"channel_id,omitempty"`
	UserID    domain.UserID    `json:"user_id,omitempty"`
	Data      any              `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

type MessagePayload struct {
	ID            string           `json:"id"`
	ChannelID     domain.ChannelID `json:"channel_id"`
	UserID        domain.UserID    `json:"user_id"`
	Content       string           `json:"content"`
	CreatedAt     string           `json:"created_at,omitempty"`
	IsPinned      bool             `json:"is_pinned"`
	ReactionCount int              `json:"reaction_count"`
}

type MessageDeletedPayload struct {
	ID        string           `json:"id"`
	ChannelID domain.ChannelID `json:"channel_id"`
}

type ReactionPayload struct {
	ID        string        `json:"id"`
	MessageID string        `json:"message_id"`
	UserID    domain.UserID `json:"user_id"`
	Emoji     string        `json:"emoji"`
	CreatedAt string        `json:"created_at,omitempty"`
}

type TypingPayload struct {
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	IsTyping  bool             `json:"is_typing"`
}

type ReadReceiptPayload struct {
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	MessageID string           `json:"message_id"`
}

type PresencePayload struct {
	UserID   domain.UserID `json:"user_id"`
	IsOnline bool          `json:"is_online"`
	LastSeen time.Time     `json:"last_seen"`
}

// ConnectionStatus is the first frame of every stream.
type ConnectionStatus struct {
	Type      Type          `json:"type"`
	Status    string        `json:"status"`
	UserID    domain.UserID `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewTyping(channelID domain.ChannelID, userID domain.UserID, isTyping bool, at time.Time) BroadcastEvent {
	return BroadcastEvent{
		Type:      Typing,
		ChannelID: channelID,
		Data:      TypingPayload{ChannelID: channelID, UserID: userID, IsTyping: isTyping},
		Timestamp: at,
	}
}

func NewReadReceipt(channelID domain.ChannelID, userID domain.UserID, messageID string, at time.Time) BroadcastEvent {
	return BroadcastEvent{
		Type:      ReadReceipt,
		ChannelID: channelID,
		Data:      ReadReceiptPayload{ChannelID: channelID, UserID: userID, MessageID: messageID},
		Timestamp: at,
	}
}

func NewPresence(userID domain.UserID, online bool, at time.Time) BroadcastEvent {
	return BroadcastEvent{
		Type:      Presence,
		UserID:    userID,
		Data:      PresencePayload{UserID: userID, IsOnline: online, LastSeen: at},
		Timestamp: at,
	}
}

func NewConnectionStatus(userID domain.UserID, at time.Time) ConnectionStatus {
	return ConnectionStatus{Type: Connection, Status: "connected", UserID: userID, Timestamp: at}
}
