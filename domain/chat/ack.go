package chat

// Ack is the response body returned for a handled command.
type Ack struct {
	Status     string `json:"status"`
	ChannelID  string `json:"channel_id,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	ReactionID string `json:"reaction_id,omitempty"`
}

const (
	StatusSent    = "sent"
	StatusJoined  = "joined"
	StatusLeft    = "left"
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
	StatusRemoved = "removed"
)
