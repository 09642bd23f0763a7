// Package domain contains core concepts of the real-time chat system.
// This file defines Message and Reaction records as persisted by the store.
// Only the fields needed to build broadcast events are carried.
package domain

import (
	"github.com/google/uuid"
	"time"
)

// Message represents a persisted channel message.
type Message struct {
	ID            uuid.UUID
	ChannelID     ChannelID
	UserID        UserID
	Content       string
	IsPinned      bool
	ReactionCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reaction is an emoji attached to a message by a user.
// (MessageID, UserID, Emoji) is unique.
type Reaction struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	ChannelID ChannelID
	UserID    UserID
	Emoji     string
	CreatedAt time.Time
}
