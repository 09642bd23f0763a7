package embedded

import (
	"context"
	"log/slog"
	"sync"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"
	"tutor-realtime/errors"
)

// Notifier is the in-process counterpart of LISTEN/NOTIFY.
// Delivery is at-most-once: a session whose queue is full misses the
// notification, a closed session misses everything after.
type Notifier struct {
	log        *slog.Logger
	mu         sync.RWMutex
	sessions   map[*session]struct{}
	bufferSize int
}

func NewNotifier(log *slog.Logger, bufferSize int) *Notifier {
	return &Notifier{
		log:        log,
		sessions:   make(map[*session]struct{}),
		bufferSize: bufferSize,
	}
}

// Dial opens a new listen session. It satisfies contract.ListenerDialer.
func (n *Notifier) Dial(ctx context.Context) (contract.IListener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &session{
		notifier: n,
		names:    make(map[string]struct{}),
		queue:    make(chan event.RawNotification, n.bufferSize),
		closed:   make(chan struct{}),
	}
	n.mu.Lock()
	n.sessions[s] = struct{}{}
	n.mu.Unlock()
	return s, nil
}

// Notify delivers the payload to every session listening on channel.
func (n *Notifier) Notify(channel, payload string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for s := range n.sessions {
		if !s.listens(channel) {
			continue
		}
		select {
		case s.queue <- event.RawNotification{Channel: channel, Payload: payload}:
		default:
			n.log.Warn("Listen session queue full, notification lost", "channel", channel)
		}
	}
}

// DisconnectAll terminates every open session, as a server restart would.
func (n *Notifier) DisconnectAll() {
	n.mu.Lock()
	sessions := make([]*session, 0, len(n.sessions))
	for s := range n.sessions {
		sessions = append(sessions, s)
	}
	n.sessions = make(map[*session]struct{})
	n.mu.Unlock()

	for _, s := range sessions {
		s.terminate()
	}
}

func (n *Notifier) remove(s *session) {
	n.mu.Lock()
	delete(n.sessions, s)
	n.mu.Unlock()
}

type session struct {
	notifier *Notifier
	mu       sync.RWMutex
	names    map[string]struct{}
	queue    chan event.RawNotification
	closed   chan struct{}
	once     sync.Once
}

func (s *session) Listen(_ context.Context, name string) error {
	select {
	case <-s.closed:
		return errors.ErrListenerClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[name] = struct{}{}
	return nil
}

func (s *session) WaitForNotification(ctx context.Context) (event.RawNotification, error) {
	select {
	case <-ctx.Done():
		return event.RawNotification{}, ctx.Err()
	case <-s.closed:
		return event.RawNotification{}, errors.ErrListenerClosed
	case n := <-s.queue:
		return n, nil
	}
}

func (s *session) Close(context.Context) error {
	s.notifier.remove(s)
	s.terminate()
	return nil
}

func (s *session) listens(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[name]
	return ok
}

func (s *session) terminate() {
	s.once.Do(func() { close(s.closed) })
}
