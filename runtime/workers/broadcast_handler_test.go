package workers

import (
	"context"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"log/slog"
	"testing"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
	"tutor-realtime/mocks"
)

func TestBroadcastHandler_Routes_Message_To_Its_Channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIBroadcaster(ctrl)
	handler := NewBroadcastHandler(logs.GetLoggerFromLevel(slog.LevelDebug), router)

	// Then the event targets the notification's channel
	router.EXPECT().
		Broadcast(domain.ChannelID("c-1"), gomock.Any()).
		DoAndReturn(func(channelID domain.ChannelID, evt event.BroadcastEvent, _ ...domain.UserID) int {
			req.Equal(event.NewMessage, evt.Type)
			req.Equal("m-1", evt.Data.(event.MessagePayload).ID)
			return 2
		})

	// When a message insert is handled
	err := handler(context.Background(), event.MessagesNotification, event.ChangeNotification{
		Operation: event.Insert,
		Table:     event.MessagesTable,
		ID:        "m-1",
		ChannelID: "c-1",
		Content:   "hi",
	})
	req.NoError(err)
}

func TestBroadcastHandler_Ignores_Unrouted_Changes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIBroadcaster(ctrl)
	handler := NewBroadcastHandler(logs.GetLoggerFromLevel(slog.LevelDebug), router)

	// No Broadcast call expected
	err := handler(context.Background(), event.ReactionsNotification, event.ChangeNotification{
		Operation: event.Update,
		Table:     event.ReactionsTable,
		ChannelID: "c-1",
	})
	req.NoError(err)
}
