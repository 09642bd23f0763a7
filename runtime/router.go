package runtime

import (
	"log/slog"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
	"tutor-realtime/observability"

	"github.com/samber/lo"
)

var _ contract.IBroadcaster = (*Router)(nil)

// Router resolves the audience of an event from in-memory state only.
// It never reads the store.
type Router struct {
	log           *slog.Logger
	registry      contract.IRegistry
	subscriptions contract.ISubscriptions
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, subscriptions contract.ISubscriptions) *Router {
	return &Router{log: log, registry: registry, subscriptions: subscriptions}
}

// Broadcast sends the event to every local subscriber of the channel
// except the excluded users. It returns the number of connections reached.
func (r *Router) Broadcast(channelID domain.ChannelID, evt event.BroadcastEvent, exclude ...domain.UserID) int {
	recipients := lo.Without(r.subscriptions.Subscribers(channelID), exclude...)
	delivered := 0
	for _, userID := range recipients {
		delivered += r.registry.Send(userID, evt)
	}
	observability.ObserveFanout(len(recipients))
	r.log.Debug("Event broadcast",
		"channel_id", channelID,
		"event_type", evt.Type,
		"recipients", len(recipients),
		"delivered", delivered)
	return delivered
}

func (r *Router) SendToUser(userID domain.UserID, evt event.BroadcastEvent) int {
	return r.registry.Send(userID, evt)
}

// BroadcastPresence reaches every user connected to this process.
func (r *Router) BroadcastPresence(evt event.BroadcastEvent) int {
	delivered := 0
	for _, userID := range r.registry.OnlineUsers() {
		delivered += r.registry.Send(userID, evt)
	}
	return delivered
}
