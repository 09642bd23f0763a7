package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"tutor-realtime/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Memberships maps a channel id to the users allowed in it.
//
//	{"3f1c...": ["alice", "bob"]}
type Memberships map[domain.ChannelID][]domain.UserID

func ReadMemberships(r io.Reader) (Memberships, error) {
	var memberships Memberships
	if err := json.NewDecoder(r).Decode(&memberships); err != nil {
		return nil, fmt.Errorf("decode memberships: %w", err)
	}
	for channelID, users := range memberships {
		if _, err := uuid.Parse(string(channelID)); err != nil {
			return nil, fmt.Errorf("channel %q is not a uuid: %w", channelID, err)
		}
		for _, userID := range users {
			if userID == "" {
				return nil, fmt.Errorf("channel %s has an empty user id", channelID)
			}
		}
	}
	return memberships, nil
}

func ReadMembershipsFile(path string) (Memberships, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open memberships: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadMemberships(f)
}

// Seed writes every membership in a single transaction and returns how many
// pairs were written. Existing memberships are left in place.
func (s *Store) Seed(_ context.Context, memberships Memberships) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for channelID, users := range memberships {
			for _, userID := range users {
				if err := txn.Set(memberKey(channelID, userID), []byte{}); err != nil {
					return err
				}
				if err := txn.Set([]byte(membershipPrefix(userID)+string(channelID)), []byte{}); err != nil {
					return err
				}
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed memberships: %w", err)
	}
	s.log.Info("Memberships seeded", "channels", len(memberships), "members", count)
	return count, nil
}
