package event

import (
	"time"
)

// FromNotification turns a store change into the event routed to the
// channel's subscribers. ok is false for combinations nobody listens to
// (reaction updates) and for payloads without a channel.
func FromNotification(n ChangeNotification, now time.Time) (evt BroadcastEvent, ok bool) {
	if n.ChannelID == "" {
		return BroadcastEvent{}, false
	}
	evt = BroadcastEvent{ChannelID: n.ChannelID, Timestamp: now}

	switch n.Table {
	case MessagesTable:
		switch n.Operation {
		case Insert, Update:
			evt.Type = NewMessage
			if n.Operation == Update {
				evt.Type = MessageUpdated
			}
			evt.Data = MessagePayload{
				ID:            n.ID,
				ChannelID:     n.ChannelID,
				UserID:        n.UserID,
				Content:       n.Content,
				CreatedAt:     n.CreatedAt,
				IsPinned:      n.IsPinned,
				ReactionCount: n.ReactionCount,
			}
		case Delete:
			evt.Type = MessageDeleted
			evt.Data = MessageDeletedPayload{ID: n.ID, ChannelID: n.ChannelID}
		default:
			return BroadcastEvent{}, false
		}
	case ReactionsTable:
		switch n.Operation {
		case Insert:
			evt.Type = ReactionAdded
		case Delete:
			evt.Type = ReactionRemoved
		default:
			return BroadcastEvent{}, false
		}
		evt.Data = ReactionPayload{
			ID:        n.ID,
			MessageID: n.MessageID,
			UserID:    n.UserID,
			Emoji:     n.Emoji,
			CreatedAt: n.CreatedAt,
		}
	default:
		return BroadcastEvent{}, false
	}
	return evt, true
}
