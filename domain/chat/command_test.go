package chat

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"tutor-realtime/errors"
)

func TestDecode_NewMessage(t *testing.T) {
	req := require.New(t)
	channelID := uuid.NewString()

	// Given a well-formed new_message frame
	raw := []byte(`{"type":"new_message","data":{"channel_id":"` + channelID + `","content":"hi"}}`)

	// When it is decoded
	cmd, err := Decode(raw)

	// Then the concrete command is returned by value
	req.NoError(err)
	msg, ok := cmd.(NewMessage)
	req.True(ok)
	req.Equal(channelID, msg.ChannelID)
	req.Equal("hi", msg.Content)
	req.NoError(Validate(cmd))
}

func TestDecode_MalformedJSON(t *testing.T) {
	req := require.New(t)
	_, err := Decode([]byte(`{"type":`))
	req.ErrorIs(err, errors.ErrMalformedFrame)
}

func TestDecode_UnknownType(t *testing.T) {
	req := require.New(t)
	_, err := Decode([]byte(`{"type":"dance","data":{}}`))
	req.ErrorIs(err, errors.ErrUnknownCommand)
	req.Contains(err.Error(), "dance")
}

func TestDecode_WrongFieldType(t *testing.T) {
	req := require.New(t)
	_, err := Decode([]byte(`{"type":"typing","data":{"channel_id":42}}`))
	req.ErrorIs(err, errors.ErrInvalidCommand)
}

func TestTyping_DefaultsToTrue(t *testing.T) {
	req := require.New(t)
	channelID := uuid.NewString()

	cmd, err := Decode([]byte(`{"type":"typing","data":{"channel_id":"` + channelID + `"}}`))
	req.NoError(err)
	req.True(cmd.(Typing).TypingValue())

	cmd, err = Decode([]byte(`{"type":"typing","data":{"channel_id":"` + channelID + `","is_typing":false}}`))
	req.NoError(err)
	req.False(cmd.(Typing).TypingValue())
}

func TestValidate(t *testing.T) {
	channelID := uuid.NewString()
	messageID := uuid.NewString()
	tests := []struct {
		name  string
		cmd   Command
		valid bool
	}{
		{"valid message", NewMessage{ChannelID: channelID, Content: "hello"}, true},
		{"empty content", NewMessage{ChannelID: channelID}, false},
		{"content too long", NewMessage{ChannelID: channelID, Content: strings.Repeat("a", 4001)}, false},
		{"channel not a uuid", JoinChannel{ChannelID: "general"}, false},
		{"missing message id", ReadReceipt{ChannelID: channelID}, false},
		{"valid reaction", AddReaction{ChannelID: channelID, MessageID: messageID, Emoji: "👍"}, true},
		{"emoji too long", AddReaction{ChannelID: channelID, MessageID: messageID, Emoji: strings.Repeat("x", 33)}, false},
		{"valid delete", DeleteMessage{ChannelID: channelID, MessageID: messageID}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cmd)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrInvalidCommand)
		})
	}
}
