package runtime

import (
	"slices"
	"sync"
	"tutor-realtime/contract"
	"tutor-realtime/domain"

	"github.com/samber/lo"
)

type Set map[domain.UserID]struct{}

var _ contract.ISubscriptions = (*Subscriptions)(nil)

// Subscriptions maps each channel to the local users receiving its events.
// A channel without subscribers is removed so the map never grows with
// channels nobody on this process listens to.
type Subscriptions struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]Set
	byUser   map[domain.UserID]map[domain.ChannelID]struct{}
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		channels: make(map[domain.ChannelID]Set),
		byUser:   make(map[domain.UserID]map[domain.ChannelID]struct{}),
	}
}

func (s *Subscriptions) Join(channelID domain.ChannelID, userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.channels[channelID]
	if !ok {
		members = make(Set)
		s.channels[channelID] = members
	}
	members[userID] = struct{}{}

	joined, ok := s.byUser[userID]
	if !ok {
		joined = make(map[domain.ChannelID]struct{})
		s.byUser[userID] = joined
	}
	joined[channelID] = struct{}{}
}

func (s *Subscriptions) Leave(channelID domain.ChannelID, userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leave(channelID, userID)
}

// LeaveAll removes the user from every channel and returns them.
func (s *Subscriptions) LeaveAll(userID domain.UserID) []domain.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()

	left := lo.Keys(s.byUser[userID])
	for _, channelID := range left {
		s.leave(channelID, userID)
	}
	slices.Sort(left)
	return left
}

// Subscribers is a snapshot, safe to range over without the lock.
func (s *Subscriptions) Subscribers(channelID domain.ChannelID) []domain.UserID {
	s.mu.RLock()
	users := lo.Keys(s.channels[channelID])
	s.mu.RUnlock()
	slices.Sort(users)
	return users
}

func (s *Subscriptions) Channels(userID domain.UserID) []domain.ChannelID {
	s.mu.RLock()
	channels := lo.Keys(s.byUser[userID])
	s.mu.RUnlock()
	slices.Sort(channels)
	return channels
}

func (s *Subscriptions) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

func (s *Subscriptions) leave(channelID domain.ChannelID, userID domain.UserID) {
	if members, ok := s.channels[channelID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(s.channels, channelID)
		}
	}
	if joined, ok := s.byUser[userID]; ok {
		delete(joined, channelID)
		if len(joined) == 0 {
			delete(s.byUser, userID)
		}
	}
}
