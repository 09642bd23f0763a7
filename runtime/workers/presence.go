package workers

import (
	"context"
	"log/slog"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"
	"tutor-realtime/runtime"
)

// PresenceWorker turns registry presence changes into presence events.
type PresenceWorker struct {
	log     *slog.Logger
	changes <-chan runtime.PresenceChange
	router  contract.IBroadcaster
}

func NewPresenceWorker(log *slog.Logger, changes <-chan runtime.PresenceChange, router contract.IBroadcaster) *PresenceWorker {
	return &PresenceWorker{log: log, changes: changes, router: router}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence worker")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-w.changes:
			delivered := w.router.BroadcastPresence(event.NewPresence(change.UserID, change.Online, change.At))
			w.log.Debug("Presence broadcast",
				"user_id", change.UserID,
				"online", change.Online,
				"delivered", delivered)
		}
	}
}
