package event

import (
	"encoding/json"
	"fmt"
	"tutor-realtime/domain"
)

// Notification names the store triggers publish on.
const (
	MessagesNotification  = "channel_messages"
	ReactionsNotification = "message_reactions"
)

type Operation string

const (
	Insert Operation = "INSERT"
	Update Operation = "UPDATE"
	Delete Operation = "DELETE"
)

type Table string

const (
	MessagesTable  Table = "channel_messages"
	ReactionsTable Table = "message_reactions"
)

// RawNotification is what a listen session hands back: the notification
// name and its undecoded payload.
type RawNotification struct {
	Channel string
	Payload string
}

// ChangeNotification is the decoded trigger payload.
// CreatedAt is kept verbatim, the store decides its format.
type ChangeNotification struct {
	Operation     Operation        `json:"operation"`
	Table         Table            `json:"table"`
	ID            string           `json:"id"`
	ChannelID     domain.ChannelID `json:"channel_id"`
	UserID        domain.UserID    `json:"user_id,omitempty"`
	Content       string           `json:"content,omitempty"`
	CreatedAt     string           `json:"created_at,omitempty"`
	IsPinned      bool             `json:"is_pinned,omitempty"`
	ReactionCount int              `json:"reaction_count,omitempty"`
	Emoji         string           `json:"emoji,omitempty"`
	MessageID     string           `json:"message_id,omitempty"`
}

func DecodeNotification(payload string) (ChangeNotification, error) {
	var n ChangeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return ChangeNotification{}, fmt.Errorf("decode notification payload: %w", err)
	}
	return n, nil
}
