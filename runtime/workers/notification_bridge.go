package workers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"
	"tutor-realtime/observability"
)

type BridgeState int32

const (
	StateDisconnected BridgeState = iota
	StateConnected
	StateListening
)

func (s BridgeState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	default:
		return "disconnected"
	}
}

const closeTimeout = 5 * time.Second

// NotificationBridge holds one dedicated listen session on the store and
// hands every notification to the handlers registered for its name.
// It knows nothing about connections or transports.
type NotificationBridge struct {
	log      *slog.Logger
	dial     contract.ListenerDialer
	backoff  Backoff
	onChange func(BridgeState)

	mu       sync.RWMutex
	handlers map[string][]contract.NotificationHandler
	names    []string

	state atomic.Int32
}

func NewNotificationBridge(
	log *slog.Logger,
	dial contract.ListenerDialer,
	backoff Backoff,
	onChange func(BridgeState),
) *NotificationBridge {
	return &NotificationBridge{
		log:      log,
		dial:     dial,
		backoff:  backoff,
		onChange: onChange,
		handlers: make(map[string][]contract.NotificationHandler),
	}
}

// Register adds a handler for a notification name.
// Names registered while the bridge runs are listened to from the next session.
func (b *NotificationBridge) Register(name string, handler contract.NotificationHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[name]; !ok {
		b.names = append(b.names, name)
	}
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *NotificationBridge) State() BridgeState {
	return BridgeState(b.state.Load())
}

// Run keeps a listen session open until the context is canceled.
// A lost session is redialed with backoff; what was notified meanwhile is lost.
func (b *NotificationBridge) Run(ctx context.Context) error {
	defer b.setState(StateDisconnected)

	attempt := 0
	for {
		listened, err := b.session(ctx)
		b.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if listened {
			attempt = 0
		}
		attempt++
		delay := b.backoff.Delay(attempt)
		b.log.Warn("Notification session lost, reconnecting",
			"error", err,
			"attempt", attempt,
			"retry_in", delay)
		observability.BridgeReconnect()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session dials, listens and pumps notifications until the session fails.
// listened reports whether the session reached the listening state.
func (b *NotificationBridge) session(ctx context.Context) (listened bool, err error) {
	listener, err := b.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("dial listen session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := listener.Close(closeCtx); err != nil {
			b.log.Debug("Failed to close listen session", "error", err)
		}
	}()
	b.setState(StateConnected)

	names := b.listenNames()
	for _, name := range names {
		if err := listener.Listen(ctx, name); err != nil {
			return false, fmt.Errorf("listen %s: %w", name, err)
		}
	}
	b.setState(StateListening)
	b.log.Info("Listening for store notifications", "channels", names)

	for {
		raw, err := listener.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}
		b.dispatch(ctx, raw)
	}
}

func (b *NotificationBridge) dispatch(ctx context.Context, raw event.RawNotification) {
	observability.NotificationReceived(raw.Channel)

	n, err := event.DecodeNotification(raw.Payload)
	if err != nil {
		observability.NotificationFailed("decode")
		b.log.Warn("Skipping undecodable notification", "channel", raw.Channel, "error", err)
		return
	}

	b.mu.RLock()
	handlers := slices.Clone(b.handlers[raw.Channel])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.invoke(ctx, handler, raw.Channel, n); err != nil {
			observability.NotificationFailed("handler")
			b.log.Error("Notification handler failed",
				"channel", raw.Channel,
				"operation", n.Operation,
				"id", n.ID,
				"error", err)
		}
	}
}

// invoke isolates a handler: its panic never reaches the listen loop.
func (b *NotificationBridge) invoke(ctx context.Context, handler contract.NotificationHandler, channel string, n event.ChangeNotification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, channel, n)
}

func (b *NotificationBridge) listenNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.names)
}

func (b *NotificationBridge) setState(state BridgeState) {
	previous := BridgeState(b.state.Swap(int32(state)))
	if previous == state {
		return
	}
	observability.SetBridgeState(int(state))
	b.log.Debug("Notification bridge state changed", "from", previous, "to", state)
	if b.onChange != nil {
		b.onChange(state)
	}
}
