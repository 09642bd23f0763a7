//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"github.com/google/uuid"
	"reflect"
	"tutor-realtime/domain"
	"tutor-realtime/domain/chat"
	"tutor-realtime/domain/event"
	"tutor-realtime/sink"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRegistry tracks the open connections of this process, per user.
type IRegistry interface {
	Register(userID domain.UserID, transport sink.Transport) *sink.Connection
	Unregister(userID domain.UserID, conn *sink.Connection) bool
	Send(userID domain.UserID, evt event.BroadcastEvent) int
	OnlineUsers() []domain.UserID
	IsOnline(userID domain.UserID) bool
	ConnectionCount() int
}

// ISubscriptions maps channels to the local users receiving their events.
type ISubscriptions interface {
	Join(channelID domain.ChannelID, userID domain.UserID)
	Leave(channelID domain.ChannelID, userID domain.UserID)
	LeaveAll(userID domain.UserID) []domain.ChannelID
	Subscribers(channelID domain.ChannelID) []domain.UserID
	Channels(userID domain.UserID) []domain.ChannelID
	ChannelCount() int
}

type IBroadcaster interface {
	Broadcast(channelID domain.ChannelID, evt event.BroadcastEvent, exclude ...domain.UserID) int
	SendToUser(userID domain.UserID, evt event.BroadcastEvent) int
	BroadcastPresence(evt event.BroadcastEvent) int
}

// IHub is what transport adapters and services see of the runtime.
type IHub interface {
	Connect(ctx context.Context, userID domain.UserID, transport sink.Transport) (*sink.Connection, error)
	Disconnect(userID domain.UserID, conn *sink.Connection)
	Join(channelID domain.ChannelID, userID domain.UserID) bool
	Leave(channelID domain.ChannelID, userID domain.UserID)
	Touch(userID domain.UserID)
	OnlineUsers() []domain.UserID
	OnlineMembers(channelID domain.ChannelID) []domain.UserID
	Status(userID domain.UserID) domain.Presence
}

type IMembershipStore interface {
	ChannelIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChannelID, error)
	IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error)
}

// IMessageStore writes are never broadcast by the caller:
// the store's change notifications are the only source of those events.
type IMessageStore interface {
	CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	UpdateMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	DeleteMessage(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, messageID uuid.UUID) error
	AddReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error)
	RemoveReaction(ctx context.Context, reaction domain.Reaction) error
}

type IStore interface {
	IMembershipStore
	IMessageStore
	Close() error
}

// IListener is a dedicated session receiving store notifications.
// It is used by one goroutine at a time.
type IListener interface {
	Listen(ctx context.Context, name string) error
	WaitForNotification(ctx context.Context) (event.RawNotification, error)
	Close(ctx context.Context) error
}

type ListenerDialer func(ctx context.Context) (IListener, error)

type NotificationHandler func(ctx context.Context, channel string, n event.ChangeNotification) error

type IChatService interface {
	Handle(ctx context.Context, userID domain.UserID, cmd chat.Command) (chat.Ack, error)
}
