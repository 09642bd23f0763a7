package chat

import (
	"encoding/json"
	"fmt"
	"tutor-realtime/errors"
)

// Kind is the "type" of an inbound frame.
type Kind string

const (
	KindNewMessage     Kind = "new_message"
	KindTyping         Kind = "typing"
	KindReadReceipt    Kind = "read_receipt"
	KindJoinChannel    Kind = "join_channel"
	KindLeaveChannel   Kind = "leave_channel"
	KindAddReaction    Kind = "message_reaction"
	KindRemoveReaction Kind = "remove_reaction"
	KindEditMessage    Kind = "edit_message"
	KindDeleteMessage  Kind = "delete_message"
)

// Command is sealed: only the types in this file implement it.
type Command interface {
	Kind() Kind
	isCommand()
}

type NewMessage struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	Content   string `json:"content" validate:"required,max=4000"`
}

type Typing struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	// IsTyping defaults to true when the client omits it.
	IsTyping *bool `json:"is_typing"`
}

type ReadReceipt struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	MessageID string `json:"message_id" validate:"required,uuid"`
}

type JoinChannel struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
}

type LeaveChannel struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
}

type AddReaction struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	MessageID string `json:"message_id" validate:"required,uuid"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type RemoveReaction struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	MessageID string `json:"message_id" validate:"required,uuid"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type EditMessage struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	MessageID string `json:"message_id" validate:"required,uuid"`
	Content   string `json:"content" validate:"required,max=4000"`
}

type DeleteMessage struct {
	ChannelID string `json:"channel_id" validate:"required,uuid"`
	MessageID string `json:"message_id" validate:"required,uuid"`
}

func (NewMessage) Kind() Kind     { return KindNewMessage }
func (Typing) Kind() Kind         { return KindTyping }
func (ReadReceipt) Kind() Kind    { return KindReadReceipt }
func (JoinChannel) Kind() Kind    { return KindJoinChannel }
func (LeaveChannel) Kind() Kind   { return KindLeaveChannel }
func (AddReaction) Kind() Kind    { return KindAddReaction }
func (RemoveReaction) Kind() Kind { return KindRemoveReaction }
func (EditMessage) Kind() Kind    { return KindEditMessage }
func (DeleteMessage) Kind() Kind  { return KindDeleteMessage }

func (NewMessage) isCommand()     {}
func (Typing) isCommand()         {}
func (ReadReceipt) isCommand()    {}
func (JoinChannel) isCommand()    {}
func (LeaveChannel) isCommand()   {}
func (AddReaction) isCommand()    {}
func (RemoveReaction) isCommand() {}
func (EditMessage) isCommand()    {}
func (DeleteMessage) isCommand()  {}

// TypingValue reads IsTyping with its default.
func (t Typing) TypingValue() bool {
	return t.IsTyping == nil || *t.IsTyping
}

// Frame is the inbound WebSocket envelope.
type Frame struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses an inbound frame into its command.
// Errors wrap ErrMalformedFrame, ErrUnknownCommand or ErrInvalidCommand.
func Decode(raw []byte) (Command, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errors.ErrMalformedFrame
	}
	return DecodeData(frame.Type, frame.Data)
}

// DecodeData fills a command of the given kind from its JSON body.
// An empty body leaves the zero value, validation catches what is missing.
func DecodeData(kind Kind, data []byte) (Command, error) {
	cmd, err := newCommand(kind)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return deref(cmd), nil
	}
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidCommand, kind, err)
	}
	return deref(cmd), nil
}

func newCommand(kind Kind) (Command, error) {
	switch kind {
	case KindNewMessage:
		return &NewMessage{}, nil
	case KindTyping:
		return &Typing{}, nil
	case KindReadReceipt:
		return &ReadReceipt{}, nil
	case KindJoinChannel:
		return &JoinChannel{}, nil
	case KindLeaveChannel:
		return &LeaveChannel{}, nil
	case KindAddReaction:
		return &AddReaction{}, nil
	case KindRemoveReaction:
		return &RemoveReaction{}, nil
	case KindEditMessage:
		return &EditMessage{}, nil
	case KindDeleteMessage:
		return &DeleteMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownCommand, kind)
	}
}

// deref hands out values so the type switch downstream matches on structs.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *NewMessage:
		return *c
	case *Typing:
		return *c
	case *ReadReceipt:
		return *c
	case *JoinChannel:
		return *c
	case *LeaveChannel:
		return *c
	case *AddReaction:
		return *c
	case *RemoveReaction:
		return *c
	case *EditMessage:
		return *c
	case *DeleteMessage:
		return *c
	default:
		return cmd
	}
}
