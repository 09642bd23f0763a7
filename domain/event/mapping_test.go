package event

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
	"tutor-realtime/domain"
)

func TestFromNotification_Message_Insert(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	channelID := domain.ChannelID(uuid.NewString())

	// Given a payload as written by the channel_messages trigger
	payload := `{"operation":"INSERT","table":"channel_messages","id":"m-1","channel_id":"` +
		channelID.String() + `","user_id":"u-1","content":"hello","created_at":"2024-01-01T10:00:00","is_pinned":false,"reaction_count":0}`

	// When it is decoded and mapped
	n, err := DecodeNotification(payload)
	req.NoError(err)
	evt, ok := FromNotification(n, now)

	// Then a new_message event targets the channel
	req.True(ok)
	req.Equal(NewMessage, evt.Type)
	req.Equal(channelID, evt.ChannelID)
	req.Equal(now, evt.Timestamp)
	data, ok := evt.Data.(MessagePayload)
	req.True(ok)
	req.Equal("m-1", data.ID)
	req.Equal("hello", data.Content)
	req.Equal(domain.UserID("u-1"), data.UserID)
	req.Equal("2024-01-01T10:00:00", data.CreatedAt)
}

func TestFromNotification_Operations(t *testing.T) {
	channelID := domain.ChannelID(uuid.NewString())
	tests := []struct {
		name     string
		n        ChangeNotification
		expected Type
		ok       bool
	}{
		{"message update", ChangeNotification{Operation: Update, Table: MessagesTable, ChannelID: channelID}, MessageUpdated, true},
		{"message delete", ChangeNotification{Operation: Delete, Table: MessagesTable, ChannelID: channelID}, MessageDeleted, true},
		{"reaction insert", ChangeNotification{Operation: Insert, Table: ReactionsTable, ChannelID: channelID, Emoji: "👍"}, ReactionAdded, true},
		{"reaction delete", ChangeNotification{Operation: Delete, Table: ReactionsTable, ChannelID: channelID}, ReactionRemoved, true},
		{"reaction update is ignored", ChangeNotification{Operation: Update, Table: ReactionsTable, ChannelID: channelID}, "", false},
		{"unknown table", ChangeNotification{Operation: Insert, Table: "users", ChannelID: channelID}, "", false},
		{"missing channel", ChangeNotification{Operation: Insert, Table: MessagesTable}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			evt, ok := FromNotification(tt.n, time.Now())
			req.Equal(tt.ok, ok)
			req.Equal(tt.expected, evt.Type)
		})
	}
}

func TestDecodeNotification_Malformed(t *testing.T) {
	req := require.New(t)
	_, err := DecodeNotification("{not json")
	req.Error(err)
}

func TestBroadcastEvent_WireShape(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	evt := NewTyping("c-1", "u-1", true, at)

	raw, err := json.Marshal(evt)
	req.NoError(err)

	var decoded map[string]any
	req.NoError(json.Unmarshal(raw, &decoded))
	req.Equal("typing", decoded["type"])
	req.Equal("c-1", decoded["channel_id"])
	req.Equal("2024-01-01T10:00:00Z", decoded["timestamp"])
	req.Equal(map[string]any{"channel_id": "c-1", "user_id": "u-1", "is_typing": true}, decoded["data"])
}
