package workers

import (
	"context"
	"log/slog"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"
)

// NewBroadcastHandler routes store changes to the local subscribers of
// their channel. Register it on the table notification names only: the
// channel-scoped names carry the same changes a second time.
func NewBroadcastHandler(log *slog.Logger, router contract.IBroadcaster) contract.NotificationHandler {
	return func(ctx context.Context, channel string, n event.ChangeNotification) error {
		evt, ok := event.FromNotification(n, time.Now().UTC())
		if !ok {
			log.Debug("Notification without broadcast event",
				"channel", channel,
				"table", n.Table,
				"operation", n.Operation)
			return nil
		}
		router.Broadcast(evt.ChannelID, evt)
		return nil
	}
}
