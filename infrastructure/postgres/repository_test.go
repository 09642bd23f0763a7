package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
	"time"
	"tutor-realtime/domain"
	"tutor-realtime/errors"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(logs.GetLoggerFromLevel(slog.LevelDebug), db), mock
}

func TestRepository_ChannelIDsForUser(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)

	// Given alice is member of two channels
	mock.ExpectQuery(queryChannelIDsForUser).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"channel_id"}).AddRow("c-1").AddRow("c-2"))

	// When her channels are loaded
	channels, err := repo.ChannelIDsForUser(context.Background(), "alice")

	// Then both are returned
	req.NoError(err)
	req.Equal([]domain.ChannelID{"c-1", "c-2"}, channels)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_ChannelIDsForUser_Error(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(queryChannelIDsForUser).WithArgs("alice").WillReturnError(sql.ErrConnDone)

	_, err := repo.ChannelIDsForUser(context.Background(), "alice")

	req.ErrorIs(err, sql.ErrConnDone)
}

func TestRepository_IsMember(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(queryIsMember).
		WithArgs("c-1", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(queryIsMember).
		WithArgs("c-1", "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.IsMember(context.Background(), "c-1", "alice")
	req.NoError(err)
	req.True(ok)

	ok, err = repo.IsMember(context.Background(), "c-1", "mallory")
	req.NoError(err)
	req.False(ok)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_CreateMessage(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	msg := domain.Message{
		ID:        uuid.New(),
		ChannelID: "c-1",
		UserID:    "alice",
		Content:   "hello",
		CreatedAt: time.Now().UTC(),
	}
	mock.ExpectExec(queryInsertMessage).
		WithArgs(msg.ID.String(), "c-1", "alice", "hello", msg.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.CreateMessage(context.Background(), msg)

	req.NoError(err)
	req.Equal(msg.ID, created.ID)
	req.Equal(msg.CreatedAt, created.UpdatedAt)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_UpdateMessage_Not_Owned(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	msg := domain.Message{ID: uuid.New(), ChannelID: "c-1", UserID: "mallory", Content: "x", UpdatedAt: time.Now()}

	// Given no row matches id, channel and author
	mock.ExpectExec(queryUpdateMessage).
		WithArgs("x", msg.UpdatedAt, msg.ID.String(), "c-1", "mallory").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateMessage(context.Background(), msg)

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRepository_DeleteMessage(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	messageID := uuid.New()
	mock.ExpectExec(queryDeleteMessage).
		WithArgs(messageID.String(), "c-1", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req.NoError(repo.DeleteMessage(context.Background(), "c-1", "alice", messageID))
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_Reactions(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	reaction := domain.Reaction{
		ID:        uuid.New(),
		MessageID: uuid.New(),
		ChannelID: "c-1",
		UserID:    "alice",
		Emoji:     "👍",
		CreatedAt: time.Now(),
	}
	mock.ExpectExec(queryInsertReaction).
		WithArgs(reaction.ID.String(), reaction.MessageID.String(), "alice", "👍", reaction.CreatedAt, "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(queryDeleteReaction).
		WithArgs(reaction.MessageID.String(), "alice", "👍", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(queryDeleteReaction).
		WithArgs(reaction.MessageID.String(), "alice", "👍", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddReaction(context.Background(), reaction)
	req.NoError(err)
	req.Equal(reaction.ID, added.ID)

	// Removing twice: the second finds nothing
	req.NoError(repo.RemoveReaction(context.Background(), reaction))
	err = repo.RemoveReaction(context.Background(), reaction)
	req.ErrorIs(err, errors.ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_RemoveReaction_ScopedToChannel(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	// Given the message belongs to another channel than the one named
	reaction := domain.Reaction{MessageID: uuid.New(), ChannelID: "c-member", UserID: "alice", Emoji: "👍"}
	mock.ExpectExec(queryDeleteReaction).
		WithArgs(reaction.MessageID.String(), "alice", "👍", "c-member").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// When alice removes her reaction through that channel
	err := repo.RemoveReaction(context.Background(), reaction)

	// Then nothing is deleted
	req.ErrorIs(err, errors.ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func TestInstallTriggers(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	req.NoError(err)
	defer db.Close()

	mock.ExpectBegin()
	for _, stmt := range TriggerStatements {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	req.NoError(InstallTriggers(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), db))
	req.NoError(mock.ExpectationsWereMet())
}

func TestInstallTriggers_Rolls_Back(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	req.NoError(err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(TriggerStatements[0]).WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	err = InstallTriggers(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), db)

	req.ErrorContains(err, "statement 1/")
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_AddReaction_Duplicate(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepository(t)
	reaction := domain.Reaction{ID: uuid.New(), MessageID: uuid.New(), ChannelID: "c-1", UserID: "alice", Emoji: "👍"}
	mock.ExpectExec(queryInsertReaction).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	_, err := repo.AddReaction(context.Background(), reaction)

	req.ErrorIs(err, errors.ErrAlreadyExists)
}
