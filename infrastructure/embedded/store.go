package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
	"tutor-realtime/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.IStore = (*Store)(nil)

// Store keeps memberships, messages and reactions in Badger and publishes
// the same change notifications the Postgres triggers would.
//
// Keys:
//
//	member:{channel}:{user}           channel -> users
//	membership:{user}:{channel}       user -> channels
//	msg:{message}                     message record
//	reaction:{message}:{user}:{emoji} reaction record
type Store struct {
	log      *slog.Logger
	db       *badger.DB
	notifier *Notifier
}

func NewStore(log *slog.Logger, db *badger.DB, notifier *Notifier) *Store {
	return &Store{log: log, db: db, notifier: notifier}
}

type messageRecord struct {
	ID            uuid.UUID        `json:"id"`
	ChannelID     domain.ChannelID `json:"channel_id"`
	UserID        domain.UserID    `json:"user_id"`
	Content       string           `json:"content"`
	IsPinned      bool             `json:"is_pinned"`
	ReactionCount int              `json:"reaction_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type reactionRecord struct {
	ID        uuid.UUID        `json:"id"`
	MessageID uuid.UUID        `json:"message_id"`
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	Emoji     string           `json:"emoji"`
	CreatedAt time.Time        `json:"created_at"`
}

func memberKey(channelID domain.ChannelID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", channelID, userID))
}

func membershipPrefix(userID domain.UserID) string {
	return fmt.Sprintf("membership:%s:", userID)
}

func messageKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s", id))
}

func reactionPrefix(messageID uuid.UUID) string {
	return fmt.Sprintf("reaction:%s:", messageID)
}

func reactionKey(messageID uuid.UUID, userID domain.UserID, emoji string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", reactionPrefix(messageID), userID, emoji))
}

// AddMember grants a user access to a channel.
func (s *Store) AddMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(memberKey(channelID, userID), []byte{}); err != nil {
			return err
		}
		return txn.Set([]byte(membershipPrefix(userID)+string(channelID)), []byte{})
	})
}

func (s *Store) RemoveMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(memberKey(channelID, userID)); err != nil {
			return err
		}
		return txn.Delete([]byte(membershipPrefix(userID) + string(channelID)))
	})
}

func (s *Store) ChannelIDsForUser(_ context.Context, userID domain.UserID) ([]domain.ChannelID, error) {
	var channels []domain.ChannelID
	prefix := membershipPrefix(userID)
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			channels = append(channels, domain.ChannelID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan memberships: %w", err)
	}
	return channels, nil
}

func (s *Store) IsMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(channelID, userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read membership: %w", err)
	}
	return true, nil
}

func (s *Store) CreateMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	msg.UpdatedAt = msg.CreatedAt
	record := toMessageRecord(msg)
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(msg.ID), record)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	s.notifyMessage(event.Insert, record)
	return msg, nil
}

func (s *Store) UpdateMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	var record messageRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.ownedMessage(txn, msg.ID, msg.ChannelID, msg.UserID, &record); err != nil {
			return err
		}
		record.Content = msg.Content
		record.UpdatedAt = msg.UpdatedAt
		return setJSON(txn, messageKey(msg.ID), record)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("update message %s: %w", msg.ID, err)
	}
	s.notifyMessage(event.Update, record)
	return record.toDomain(), nil
}

// DeleteMessage removes the message and its reactions.
// Only the message deletion is notified.
func (s *Store) DeleteMessage(_ context.Context, channelID domain.ChannelID, userID domain.UserID, messageID uuid.UUID) error {
	var record messageRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.ownedMessage(txn, messageID, channelID, userID, &record); err != nil {
			return err
		}
		if err := deletePrefix(txn, reactionPrefix(messageID)); err != nil {
			return err
		}
		return txn.Delete(messageKey(messageID))
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	s.notifyMessage(event.Delete, record)
	return nil
}

func (s *Store) AddReaction(_ context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	record := toReactionRecord(reaction)
	err := s.db.Update(func(txn *badger.Txn) error {
		var msg messageRecord
		if err := getJSON(txn, messageKey(reaction.MessageID), &msg); err != nil {
			return err
		}
		if msg.ChannelID != reaction.ChannelID {
			return errors.ErrNotFound
		}
		key := reactionKey(reaction.MessageID, reaction.UserID, reaction.Emoji)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAlreadyExists
		}
		msg.ReactionCount++
		if err := setJSON(txn, messageKey(msg.ID), msg); err != nil {
			return err
		}
		return setJSON(txn, key, record)
	})
	if err != nil {
		return domain.Reaction{}, fmt.Errorf("add reaction on %s: %w", reaction.MessageID, err)
	}
	s.notifyReaction(event.Insert, record)
	return reaction, nil
}

func (s *Store) RemoveReaction(_ context.Context, reaction domain.Reaction) error {
	var record reactionRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		key := reactionKey(reaction.MessageID, reaction.UserID, reaction.Emoji)
		if err := getJSON(txn, key, &record); err != nil {
			return err
		}
		if record.ChannelID != reaction.ChannelID {
			return errors.ErrNotFound
		}
		var msg messageRecord
		if err := getJSON(txn, messageKey(reaction.MessageID), &msg); err == nil && msg.ReactionCount > 0 {
			msg.ReactionCount--
			if err := setJSON(txn, messageKey(msg.ID), msg); err != nil {
				return err
			}
		}
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("remove reaction on %s: %w", reaction.MessageID, err)
	}
	s.notifyReaction(event.Delete, record)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ownedMessage(txn *badger.Txn, id uuid.UUID, channelID domain.ChannelID, userID domain.UserID, record *messageRecord) error {
	if err := getJSON(txn, messageKey(id), record); err != nil {
		return err
	}
	if record.ChannelID != channelID || record.UserID != userID {
		return errors.ErrNotFound
	}
	return nil
}

func (s *Store) notifyMessage(op event.Operation, record messageRecord) {
	n := event.ChangeNotification{
		Operation: op,
		Table:     event.MessagesTable,
		ID:        record.ID.String(),
		ChannelID: record.ChannelID,
	}
	if op != event.Delete {
		n.UserID = record.UserID
		n.Content = record.Content
		n.CreatedAt = record.CreatedAt.Format(time.RFC3339Nano)
		n.IsPinned = record.IsPinned
		n.ReactionCount = record.ReactionCount
	}
	s.publish(event.MessagesNotification, n)
}

func (s *Store) notifyReaction(op event.Operation, record reactionRecord) {
	s.publish(event.ReactionsNotification, event.ChangeNotification{
		Operation: op,
		Table:     event.ReactionsTable,
		ID:        record.ID.String(),
		ChannelID: record.ChannelID,
		UserID:    record.UserID,
		MessageID: record.MessageID.String(),
		Emoji:     record.Emoji,
		CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
	})
}

// publish mirrors the triggers: table name first, then channel_<id>.
func (s *Store) publish(table string, n event.ChangeNotification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error("Failed to encode notification", "table", table, "error", err)
		return
	}
	s.notifier.Notify(table, string(payload))
	s.notifier.Notify(n.ChannelID.NotificationName(), string(payload))
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

func getJSON(txn *badger.Txn, key []byte, value any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(b []byte) error {
		return json.Unmarshal(b, value)
	})
}

func deletePrefix(txn *badger.Txn, prefix string) error {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	var keys [][]byte
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func toMessageRecord(msg domain.Message) messageRecord {
	return messageRecord{
		ID:            msg.ID,
		ChannelID:     msg.ChannelID,
		UserID:        msg.UserID,
		Content:       msg.Content,
		IsPinned:      msg.IsPinned,
		ReactionCount: msg.ReactionCount,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     msg.UpdatedAt,
	}
}

func (r messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:            r.ID,
		ChannelID:     r.ChannelID,
		UserID:        r.UserID,
		Content:       r.Content,
		IsPinned:      r.IsPinned,
		ReactionCount: r.ReactionCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toReactionRecord(r domain.Reaction) reactionRecord {
	return reactionRecord{
		ID:        r.ID,
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}
}
