package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

const (
	queryChannelIDsForUser = `SELECT channel_id FROM channel_members WHERE user_id = $1`
	queryIsMember          = `SELECT EXISTS (SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2)`
	queryInsertMessage     = `INSERT INTO channel_messages (id, channel_id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	queryUpdateMessage = `UPDATE channel_messages
		SET content = $1, is_edited = TRUE, edited_at = $2, updated_at = $2
		WHERE id = $3 AND channel_id = $4 AND user_id = $5`
	queryDeleteMessage = `DELETE FROM channel_messages WHERE id = $1 AND channel_id = $2 AND user_id = $3`
	queryInsertReaction = `INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
		SELECT $1, m.id, $3, $4, $5 FROM channel_messages m WHERE m.id = $2 AND m.channel_id = $6`
	queryDeleteReaction = `DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
		AND message_id IN (SELECT id FROM channel_messages WHERE channel_id = $4)`
)

var _ contract.IStore = (*Repository)(nil)

// Repository reads memberships and writes messages through a pooled
// database/sql handle. Change notifications are emitted by the triggers.
type Repository struct {
	log *slog.Logger
	db  *sql.DB
}

func NewRepository(log *slog.Logger, db *sql.DB) *Repository {
	return &Repository{log: log, db: db}
}

// Open connects a pool through the pgx database/sql driver.
func Open(ctx context.Context, databaseURL string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (r *Repository) ChannelIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChannelID, error) {
	rows, err := r.db.QueryContext(ctx, queryChannelIDsForUser, string(userID))
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var channels []domain.ChannelID
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		channels = append(channels, domain.ChannelID(channelID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return channels, nil
}

func (r *Repository) IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error) {
	var member bool
	if err := r.db.QueryRowContext(ctx, queryIsMember, string(channelID), string(userID)).Scan(&member); err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return member, nil
}

func (r *Repository) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if _, err := r.db.ExecContext(ctx, queryInsertMessage,
		msg.ID.String(), string(msg.ChannelID), string(msg.UserID), msg.Content, msg.CreatedAt); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg.UpdatedAt = msg.CreatedAt
	return msg, nil
}

func (r *Repository) UpdateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	res, err := r.db.ExecContext(ctx, queryUpdateMessage,
		msg.Content, msg.UpdatedAt, msg.ID.String(), string(msg.ChannelID), string(msg.UserID))
	if err != nil {
		return domain.Message{}, fmt.Errorf("update message: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return domain.Message{}, fmt.Errorf("update message %s: %w", msg.ID, err)
	}
	return msg, nil
}

func (r *Repository) DeleteMessage(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, messageID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, queryDeleteMessage, messageID.String(), string(channelID), string(userID))
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

// AddReaction only inserts when the message belongs to the channel.
func (r *Repository) AddReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	res, err := r.db.ExecContext(ctx, queryInsertReaction,
		reaction.ID.String(),
		reaction.MessageID.String(),
		string(reaction.UserID),
		reaction.Emoji,
		reaction.CreatedAt,
		string(reaction.ChannelID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Reaction{}, fmt.Errorf("reaction %s on %s: %w", reaction.Emoji, reaction.MessageID, errors.ErrAlreadyExists)
		}
		return domain.Reaction{}, fmt.Errorf("insert reaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return domain.Reaction{}, fmt.Errorf("message %s: %w", reaction.MessageID, err)
	}
	return reaction, nil
}

func (r *Repository) RemoveReaction(ctx context.Context, reaction domain.Reaction) error {
	res, err := r.db.ExecContext(ctx, queryDeleteReaction,
		reaction.MessageID.String(), string(reaction.UserID), reaction.Emoji, string(reaction.ChannelID))
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("reaction %s on %s: %w", reaction.Emoji, reaction.MessageID, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}
