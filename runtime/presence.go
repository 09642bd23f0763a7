package runtime

import (
	"sync"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
)

// PresenceTracker keeps the last activity of locally connected users.
// Online status itself is read from the registry.
type PresenceTracker struct {
	mu       sync.RWMutex
	registry contract.IRegistry
	lastSeen map[domain.UserID]time.Time
	now      func() time.Time
}

func NewPresenceTracker(registry contract.IRegistry) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		lastSeen: make(map[domain.UserID]time.Time),
		now:      time.Now,
	}
}

// Touch records activity for the user.
func (p *PresenceTracker) Touch(userID domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen[userID] = p.now()
}

// Forget drops the user once its last connection is gone.
func (p *PresenceTracker) Forget(userID domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lastSeen, userID)
}

func (p *PresenceTracker) Status(userID domain.UserID) domain.Presence {
	presence := domain.Presence{UserID: userID, IsOnline: p.registry.IsOnline(userID)}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if seen, ok := p.lastSeen[userID]; ok {
		presence.LastSeen = &seen
	}
	return presence
}

func (p *PresenceTracker) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.lastSeen)
}
