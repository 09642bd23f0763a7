package services

import (
	"context"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"log/slog"
	"testing"
	"tutor-realtime/domain"
	"tutor-realtime/domain/chat"
	"tutor-realtime/domain/event"
	"tutor-realtime/errors"
	"tutor-realtime/mocks"
)

type chatFixture struct {
	store   *mocks.MockIStore
	hub     *mocks.MockIHub
	router  *mocks.MockIBroadcaster
	service *ChatService
}

func newChatFixture(t *testing.T) chatFixture {
	ctrl := gomock.NewController(t)
	f := chatFixture{
		store:  mocks.NewMockIStore(ctrl),
		hub:    mocks.NewMockIHub(ctrl),
		router: mocks.NewMockIBroadcaster(ctrl),
	}
	f.service = NewChatService(logs.GetLoggerFromLevel(slog.LevelDebug), f.store, f.hub, f.router)
	f.hub.EXPECT().Touch(gomock.Any()).AnyTimes()
	return f
}

func TestChatService_NewMessage_Writes_Without_Broadcasting(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()

	// Given alice is a member
	f.store.EXPECT().IsMember(gomock.Any(), domain.ChannelID(channelID), domain.UserID("alice")).Return(true, nil)

	// Then the message is written to the store only
	f.store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg domain.Message) (domain.Message, error) {
			req.Equal(domain.ChannelID(channelID), msg.ChannelID)
			req.Equal(domain.UserID("alice"), msg.UserID)
			req.Equal("hello", msg.Content)
			req.NotEqual(uuid.Nil, msg.ID)
			return msg, nil
		})
	f.router.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// When she sends a message
	ack, err := f.service.Handle(context.Background(), "alice", chat.NewMessage{ChannelID: channelID, Content: "hello"})

	req.NoError(err)
	req.Equal(chat.StatusSent, ack.Status)
	req.NotEmpty(ack.MessageID)
}

func TestChatService_Rejects_Non_Member(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()

	f.store.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).Times(4)
	f.store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Times(0)
	f.hub.EXPECT().Join(gomock.Any(), gomock.Any()).Times(0)

	commands := []chat.Command{
		chat.NewMessage{ChannelID: channelID, Content: "hello"},
		chat.JoinChannel{ChannelID: channelID},
		chat.Typing{ChannelID: channelID},
		chat.ReadReceipt{ChannelID: channelID, MessageID: uuid.NewString()},
	}
	for _, cmd := range commands {
		_, err := f.service.Handle(context.Background(), "mallory", cmd)
		req.ErrorIs(err, errors.ErrNotChannelMember, cmd.Kind())
	}
}

func TestChatService_Typing_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()
	isTyping := false

	f.store.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.router.EXPECT().
		Broadcast(domain.ChannelID(channelID), gomock.Any(), domain.UserID("alice")).
		DoAndReturn(func(_ domain.ChannelID, evt event.BroadcastEvent, _ ...domain.UserID) int {
			req.Equal(event.Typing, evt.Type)
			req.Equal(event.TypingPayload{ChannelID: domain.ChannelID(channelID), UserID: "alice", IsTyping: false}, evt.Data)
			return 1
		})

	ack, err := f.service.Handle(context.Background(), "alice", chat.Typing{ChannelID: channelID, IsTyping: &isTyping})

	req.NoError(err)
	req.Equal(chat.StatusSent, ack.Status)
}

func TestChatService_ReadReceipt_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()
	messageID := uuid.NewString()

	f.store.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.router.EXPECT().
		Broadcast(domain.ChannelID(channelID), gomock.Any(), domain.UserID("alice")).
		DoAndReturn(func(_ domain.ChannelID, evt event.BroadcastEvent, _ ...domain.UserID) int {
			req.Equal(event.ReadReceipt, evt.Type)
			return 1
		})

	_, err := f.service.Handle(context.Background(), "alice", chat.ReadReceipt{ChannelID: channelID, MessageID: messageID})
	req.NoError(err)
}

func TestChatService_Join_And_Leave(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()

	f.store.EXPECT().IsMember(gomock.Any(), domain.ChannelID(channelID), domain.UserID("alice")).Return(true, nil)
	f.hub.EXPECT().Join(domain.ChannelID(channelID), domain.UserID("alice")).Return(true)
	f.hub.EXPECT().Leave(domain.ChannelID(channelID), domain.UserID("alice"))

	ack, err := f.service.Handle(context.Background(), "alice", chat.JoinChannel{ChannelID: channelID})
	req.NoError(err)
	req.Equal(chat.Ack{Status: chat.StatusJoined, ChannelID: channelID}, ack)

	// Leaving needs no membership check
	ack, err = f.service.Handle(context.Background(), "alice", chat.LeaveChannel{ChannelID: channelID})
	req.NoError(err)
	req.Equal(chat.StatusLeft, ack.Status)
}

func TestChatService_Reactions(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	channelID := uuid.NewString()
	messageID := uuid.New()

	f.store.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
	f.store.EXPECT().AddReaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r domain.Reaction) (domain.Reaction, error) {
			req.Equal(messageID, r.MessageID)
			req.Equal("👍", r.Emoji)
			return r, nil
		})
	f.store.EXPECT().RemoveReaction(gomock.Any(), gomock.Any()).Return(nil)

	ack, err := f.service.Handle(context.Background(), "alice",
		chat.AddReaction{ChannelID: channelID, MessageID: messageID.String(), Emoji: "👍"})
	req.NoError(err)
	req.NotEmpty(ack.ReactionID)

	ack, err = f.service.Handle(context.Background(), "alice",
		chat.RemoveReaction{ChannelID: channelID, MessageID: messageID.String(), Emoji: "👍"})
	req.NoError(err)
	req.Equal(chat.StatusRemoved, ack.Status)
}

func TestChatService_Edit_Unknown_Message(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.store.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.store.EXPECT().UpdateMessage(gomock.Any(), gomock.Any()).Return(domain.Message{}, errors.ErrNotFound)

	_, err := f.service.Handle(context.Background(), "alice",
		chat.EditMessage{ChannelID: uuid.NewString(), MessageID: uuid.NewString(), Content: "fixed"})

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestChatService_Invalid_Command(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, err := f.service.Handle(context.Background(), "alice", chat.NewMessage{ChannelID: "not-a-uuid", Content: "x"})

	req.ErrorIs(err, errors.ErrInvalidCommand)
}
