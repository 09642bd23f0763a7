package embedded

import (
	"context"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
	"time"
	"tutor-realtime/errors"
)

func TestNotifier_Delivers_Only_Listened_Names(t *testing.T) {
	req := require.New(t)
	notifier := NewNotifier(logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	listener := listen(t, notifier, "channel_messages")

	notifier.Notify("message_reactions", `{}`)
	notifier.Notify("channel_messages", `{"id":"1"}`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	raw, err := listener.WaitForNotification(ctx)
	req.NoError(err)
	req.Equal("channel_messages", raw.Channel)
	req.Equal(`{"id":"1"}`, raw.Payload)
}

func TestNotifier_Full_Queue_Loses_Notifications(t *testing.T) {
	req := require.New(t)
	notifier := NewNotifier(logs.GetLoggerFromLevel(slog.LevelDebug), 1)
	listener := listen(t, notifier, "channel_messages")

	notifier.Notify("channel_messages", `{"id":"1"}`)
	notifier.Notify("channel_messages", `{"id":"2"}`)

	raw, err := listener.WaitForNotification(context.Background())
	req.NoError(err)
	req.Equal(`{"id":"1"}`, raw.Payload)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = listener.WaitForNotification(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestNotifier_DisconnectAll(t *testing.T) {
	req := require.New(t)
	notifier := NewNotifier(logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	listener := listen(t, notifier, "channel_messages")

	notifier.DisconnectAll()

	_, err := listener.WaitForNotification(context.Background())
	req.ErrorIs(err, errors.ErrListenerClosed)
	req.ErrorIs(listener.Listen(context.Background(), "x"), errors.ErrListenerClosed)
}
