package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Every change is notified twice: on the table name and on channel_<uuid>.
const messageTriggerFunction = `
CREATE OR REPLACE FUNCTION notify_message_change()
RETURNS trigger AS $$
DECLARE
	payload JSON;
BEGIN
	IF (TG_OP = 'DELETE') THEN
		payload = json_build_object(
			'operation', 'DELETE',
			'table', 'channel_messages',
			'id', OLD.id,
			'channel_id', OLD.channel_id
		);
		PERFORM pg_notify('channel_messages', payload::text);
		PERFORM pg_notify('channel_' || OLD.channel_id::text, payload::text);
		RETURN OLD;
	END IF;

	payload = json_build_object(
		'operation', TG_OP,
		'table', 'channel_messages',
		'id', NEW.id,
		'channel_id', NEW.channel_id,
		'user_id', NEW.user_id,
		'content', NEW.content,
		'created_at', NEW.created_at,
		'is_pinned', COALESCE(NEW.is_pinned, false),
		'reaction_count', COALESCE(NEW.reaction_count, 0)
	);
	PERFORM pg_notify('channel_messages', payload::text);
	PERFORM pg_notify('channel_' || NEW.channel_id::text, payload::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`

const reactionTriggerFunction = `
CREATE OR REPLACE FUNCTION notify_reaction_change()
RETURNS trigger AS $$
DECLARE
	payload JSON;
	msg_channel_id UUID;
	row_data message_reactions%ROWTYPE;
BEGIN
	IF (TG_OP = 'DELETE') THEN
		row_data = OLD;
	ELSE
		row_data = NEW;
	END IF;

	SELECT channel_id INTO msg_channel_id
	FROM channel_messages
	WHERE id = row_data.message_id;

	payload = json_build_object(
		'operation', TG_OP,
		'table', 'message_reactions',
		'id', row_data.id,
		'message_id', row_data.message_id,
		'user_id', row_data.user_id,
		'emoji', row_data.emoji,
		'created_at', row_data.created_at,
		'channel_id', msg_channel_id
	);
	PERFORM pg_notify('message_reactions', payload::text);
	IF msg_channel_id IS NOT NULL THEN
		PERFORM pg_notify('channel_' || msg_channel_id::text, payload::text);
	END IF;
	RETURN row_data;
END;
$$ LANGUAGE plpgsql`

// TriggerStatements installs the notify triggers, idempotently.
var TriggerStatements = []string{
	`DROP TRIGGER IF EXISTS notify_new_message ON channel_messages`,
	`DROP FUNCTION IF EXISTS notify_message_change()`,
	messageTriggerFunction,
	`CREATE TRIGGER notify_new_message
	AFTER INSERT OR UPDATE OR DELETE ON channel_messages
	FOR EACH ROW EXECUTE FUNCTION notify_message_change()`,
	`DROP TRIGGER IF EXISTS notify_new_reaction ON message_reactions`,
	`DROP FUNCTION IF EXISTS notify_reaction_change()`,
	reactionTriggerFunction,
	`CREATE TRIGGER notify_new_reaction
	AFTER INSERT OR DELETE ON message_reactions
	FOR EACH ROW EXECUTE FUNCTION notify_reaction_change()`,
}

// InstallTriggers runs every statement in one transaction.
func InstallTriggers(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for i, stmt := range TriggerStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("statement %d/%d: %w", i+1, len(TriggerStatements), err)
		}
		log.Debug("Trigger statement executed", "step", i+1, "total", len(TriggerStatements))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Info("Notify triggers installed", "tables", []string{"channel_messages", "message_reactions"})
	return nil
}
