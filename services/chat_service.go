package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"tutor-realtime/contract"
	"tutor-realtime/domain"
	"tutor-realtime/domain/chat"
	"tutor-realtime/domain/event"
	"tutor-realtime/errors"

	"github.com/google/uuid"
)

var _ contract.IChatService = (*ChatService)(nil)

// ChatService handles client commands for every transport.
// Durable writes only reach the store: their events come back through the
// notification bridge. Typing and read receipts are broadcast from here.
type ChatService struct {
	log    *slog.Logger
	store  contract.IStore
	hub    contract.IHub
	router contract.IBroadcaster
	now    func() time.Time
}

func NewChatService(log *slog.Logger, store contract.IStore, hub contract.IHub, router contract.IBroadcaster) *ChatService {
	return &ChatService{
		log:    log,
		store:  store,
		hub:    hub,
		router: router,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) Handle(ctx context.Context, userID domain.UserID, cmd chat.Command) (chat.Ack, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Ack{}, err
	}
	s.hub.Touch(userID)

	switch c := cmd.(type) {
	case chat.NewMessage:
		return s.newMessage(ctx, userID, c)
	case chat.EditMessage:
		return s.editMessage(ctx, userID, c)
	case chat.DeleteMessage:
		return s.deleteMessage(ctx, userID, c)
	case chat.AddReaction:
		return s.addReaction(ctx, userID, c)
	case chat.RemoveReaction:
		return s.removeReaction(ctx, userID, c)
	case chat.Typing:
		channelID := domain.ChannelID(c.ChannelID)
		if err := s.requireMember(ctx, channelID, userID); err != nil {
			return chat.Ack{}, err
		}
		s.router.Broadcast(channelID, event.NewTyping(channelID, userID, c.TypingValue(), s.now()), userID)
		return chat.Ack{Status: chat.StatusSent, ChannelID: c.ChannelID}, nil
	case chat.ReadReceipt:
		channelID := domain.ChannelID(c.ChannelID)
		if err := s.requireMember(ctx, channelID, userID); err != nil {
			return chat.Ack{}, err
		}
		s.router.Broadcast(channelID, event.NewReadReceipt(channelID, userID, c.MessageID, s.now()), userID)
		return chat.Ack{Status: chat.StatusSent, ChannelID: c.ChannelID, MessageID: c.MessageID}, nil
	case chat.JoinChannel:
		channelID := domain.ChannelID(c.ChannelID)
		if err := s.requireMember(ctx, channelID, userID); err != nil {
			return chat.Ack{}, err
		}
		if !s.hub.Join(channelID, userID) {
			s.log.Debug("Join ignored, user has no connection here", "user_id", userID, "channel_id", channelID)
		}
		return chat.Ack{Status: chat.StatusJoined, ChannelID: c.ChannelID}, nil
	case chat.LeaveChannel:
		s.hub.Leave(domain.ChannelID(c.ChannelID), userID)
		return chat.Ack{Status: chat.StatusLeft, ChannelID: c.ChannelID}, nil
	default:
		return chat.Ack{}, fmt.Errorf("%w: %s", errors.ErrUnknownCommand, cmd.Kind())
	}
}

func (s *ChatService) newMessage(ctx context.Context, userID domain.UserID, c chat.NewMessage) (chat.Ack, error) {
	channelID := domain.ChannelID(c.ChannelID)
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return chat.Ack{}, err
	}
	msg, err := s.store.CreateMessage(ctx, domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		UserID:    userID,
		Content:   c.Content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return chat.Ack{}, fmt.Errorf("create message: %w", err)
	}
	return chat.Ack{Status: chat.StatusSent, ChannelID: c.ChannelID, MessageID: msg.ID.String()}, nil
}

func (s *ChatService) editMessage(ctx context.Context, userID domain.UserID, c chat.EditMessage) (chat.Ack, error) {
	channelID := domain.ChannelID(c.ChannelID)
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return chat.Ack{}, err
	}
	messageID, err := parseID(c.MessageID)
	if err != nil {
		return chat.Ack{}, err
	}
	if _, err := s.store.UpdateMessage(ctx, domain.Message{
		ID:        messageID,
		ChannelID: channelID,
		UserID:    userID,
		Content:   c.Content,
		UpdatedAt: s.now(),
	}); err != nil {
		return chat.Ack{}, fmt.Errorf("update message: %w", err)
	}
	return chat.Ack{Status: chat.StatusUpdated, ChannelID: c.ChannelID, MessageID: c.MessageID}, nil
}

func (s *ChatService) deleteMessage(ctx context.Context, userID domain.UserID, c chat.DeleteMessage) (chat.Ack, error) {
	channelID := domain.ChannelID(c.ChannelID)
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return chat.Ack{}, err
	}
	messageID, err := parseID(c.MessageID)
	if err != nil {
		return chat.Ack{}, err
	}
	if err := s.store.DeleteMessage(ctx, channelID, userID, messageID); err != nil {
		return chat.Ack{}, fmt.Errorf("delete message: %w", err)
	}
	return chat.Ack{Status: chat.StatusDeleted, ChannelID: c.ChannelID, MessageID: c.MessageID}, nil
}

func (s *ChatService) addReaction(ctx context.Context, userID domain.UserID, c chat.AddReaction) (chat.Ack, error) {
	channelID := domain.ChannelID(c.ChannelID)
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return chat.Ack{}, err
	}
	messageID, err := parseID(c.MessageID)
	if err != nil {
		return chat.Ack{}, err
	}
	reaction, err := s.store.AddReaction(ctx, domain.Reaction{
		ID:        uuid.New(),
		MessageID: messageID,
		ChannelID: channelID,
		UserID:    userID,
		Emoji:     c.Emoji,
		CreatedAt: s.now(),
	})
	if err != nil {
		return chat.Ack{}, fmt.Errorf("add reaction: %w", err)
	}
	return chat.Ack{
		Status:     chat.StatusSent,
		ChannelID:  c.ChannelID,
		MessageID:  c.MessageID,
		ReactionID: reaction.ID.String(),
	}, nil
}

func (s *ChatService) removeReaction(ctx context.Context, userID domain.UserID, c chat.RemoveReaction) (chat.Ack, error) {
	channelID := domain.ChannelID(c.ChannelID)
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return chat.Ack{}, err
	}
	messageID, err := parseID(c.MessageID)
	if err != nil {
		return chat.Ack{}, err
	}
	if err := s.store.RemoveReaction(ctx, domain.Reaction{
		MessageID: messageID,
		ChannelID: channelID,
		UserID:    userID,
		Emoji:     c.Emoji,
	}); err != nil {
		return chat.Ack{}, fmt.Errorf("remove reaction: %w", err)
	}
	return chat.Ack{Status: chat.StatusRemoved, ChannelID: c.ChannelID, MessageID: c.MessageID}, nil
}

func (s *ChatService) requireMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	ok, err := s.store.IsMember(ctx, channelID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		s.log.Info("Command rejected, not a channel member", "user_id", userID, "channel_id", channelID)
		return errors.ErrNotChannelMember
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	return id, nil
}
