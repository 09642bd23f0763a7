// Package domain contains core concepts of the real-time chat system.
// This file defines the presence view of a participant.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Presence is the process-local view of a user's status.
// LastSeen is nil once the user has no connection left.
type Presence struct {
	UserID   UserID     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}
