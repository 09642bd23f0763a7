package domain

// UserID identifies an authenticated user. Values are opaque to this service.
type UserID string

// ChannelID identifies a persistent chat channel (a uuid string in the store).
type ChannelID string

func (c ChannelID) String() string {
	return string(c)
}

// NotificationName is the channel-scoped notification name emitted by the
// store triggers alongside the per-table names.
func (c ChannelID) NotificationName() string {
	return "channel_" + string(c)
}

// Membership links a user to a channel. The store is the only authority on it.
type Membership struct {
	ChannelID ChannelID
	UserID    UserID
}
