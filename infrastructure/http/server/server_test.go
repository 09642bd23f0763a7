package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tutor-realtime/auth"
	"tutor-realtime/domain"
	"tutor-realtime/domain/chat"
	"tutor-realtime/errors"
	"tutor-realtime/infrastructure/http/server"
	"tutor-realtime/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "test-secret"

type fixture struct {
	hub   *mocks.MockIHub
	chat  *mocks.MockIChatService
	http  *httptest.Server
	token func(userID domain.UserID) string
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	hub := mocks.NewMockIHub(ctrl)
	chatService := mocks.NewMockIChatService(ctrl)
	tokens := auth.NewTokens(secret)
	srv := server.NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), hub, chatService, tokens,
		func() any { return map[string]int{"connections": 0} }, server.DefaultOptions())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return fixture{
		hub:  hub,
		chat: chatService,
		http: ts,
		token: func(userID domain.UserID) string {
			token, err := tokens.GenerateToken(userID, "student", time.Hour)
			require.NoError(t, err)
			return token
		},
	}
}

func (f fixture) do(t *testing.T, method, path, token, body string) *http.Response {
	r, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_RejectsMissingAndInvalidTokens(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When no credential is sent
	resp := f.do(t, http.MethodGet, "/api/v1/online-users", "", "")
	// Then the request is unauthorized
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// When a credential signed with another key is sent
	forged, err := auth.NewTokens("other").GenerateToken("alice", "student", time.Hour)
	req.NoError(err)
	resp = f.do(t, http.MethodGet, "/api/v1/online-users", forged, "")
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// When a WebSocket is requested without credential, no upgrade happens
	resp = f.do(t, http.MethodGet, "/api/v1/ws", "", "")
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_LegacyStreamPathMustMatchCaller(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When alice asks for bob's SSE stream
	resp := f.do(t, http.MethodGet, "/api/v1/sse/bob", f.token("alice"), "")

	// Then it is forbidden and nothing is registered
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestServer_PostMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	channelID := uuid.NewString()
	messageID := uuid.NewString()

	// Given the service accepts the message
	f.chat.EXPECT().
		Handle(gomock.Any(), domain.UserID("alice"), chat.NewMessage{ChannelID: channelID, Content: "hello"}).
		Return(chat.Ack{Status: chat.StatusSent, ChannelID: channelID, MessageID: messageID}, nil)

	// When alice posts through the command endpoint
	resp := f.do(t, http.MethodPost, "/api/v1/channels/"+channelID+"/messages", f.token("alice"), `{"content":"hello"}`)

	// Then the ack is returned
	req.Equal(http.StatusCreated, resp.StatusCode)
	var ack chat.Ack
	req.NoError(json.NewDecoder(resp.Body).Decode(&ack))
	req.Equal(chat.StatusSent, ack.Status)
	req.Equal(messageID, ack.MessageID)
}

func TestServer_PathVariablesOverrideBody(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	channelID := uuid.NewString()
	messageID := uuid.NewString()

	// Given a body trying to target another channel
	f.chat.EXPECT().
		Handle(gomock.Any(), domain.UserID("alice"), chat.AddReaction{ChannelID: channelID, MessageID: messageID, Emoji: "👍"}).
		Return(chat.Ack{Status: chat.StatusSent}, nil)

	// When alice reacts
	body := fmt.Sprintf(`{"channel_id":%q,"message_id":"ignored","emoji":"👍"}`, channelID)
	resp := f.do(t, http.MethodPost, "/api/v1/messages/"+messageID+"/reactions", f.token("alice"), body)

	// Then the message id comes from the path
	req.Equal(http.StatusCreated, resp.StatusCode)
}

func TestServer_CommandErrorsMapToStatus(t *testing.T) {
	channelID := uuid.NewString()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not a member", errors.ErrNotChannelMember, http.StatusForbidden},
		{"invalid", fmt.Errorf("%w: content", errors.ErrInvalidCommand), http.StatusBadRequest},
		{"unknown message", fmt.Errorf("update message: %w", errors.ErrNotFound), http.StatusNotFound},
		{"duplicate", errors.ErrAlreadyExists, http.StatusConflict},
		{"store down", fmt.Errorf("check membership: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			f.chat.EXPECT().Handle(gomock.Any(), gomock.Any(), gomock.Any()).Return(chat.Ack{}, tt.err)

			resp := f.do(t, http.MethodPost, "/api/v1/channels/"+channelID+"/typing", f.token("alice"), "")

			req.Equal(tt.status, resp.StatusCode)
		})
	}
}

func TestServer_MalformedBody(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When the body is not JSON the service is never called
	resp := f.do(t, http.MethodPost, "/api/v1/channels/"+uuid.NewString()+"/messages", f.token("alice"), `{"content":`)

	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestServer_NullBodyUsesPathVariables(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	channelID := uuid.NewString()

	// Given the service accepts the join
	f.chat.EXPECT().
		Handle(gomock.Any(), domain.UserID("alice"), chat.JoinChannel{ChannelID: channelID}).
		Return(chat.Ack{Status: chat.StatusJoined, ChannelID: channelID}, nil)

	// When the body is the JSON literal null
	resp := f.do(t, http.MethodPost, "/api/v1/channels/"+channelID+"/join", f.token("alice"), "null")

	// Then the command is built from the path alone
	req.Equal(http.StatusOK, resp.StatusCode)
	var ack chat.Ack
	req.NoError(json.NewDecoder(resp.Body).Decode(&ack))
	req.Equal(chat.StatusJoined, ack.Status)
}

func TestServer_Queries(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	channelID := domain.ChannelID(uuid.NewString())
	seen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	f.hub.EXPECT().OnlineUsers().Return([]domain.UserID{"alice", "bob"})
	f.hub.EXPECT().OnlineMembers(channelID).Return(nil)
	f.hub.EXPECT().Status(domain.UserID("bob")).Return(domain.Presence{UserID: "bob", IsOnline: true, LastSeen: &seen})

	// online users
	resp := f.do(t, http.MethodGet, "/api/v1/online-users", f.token("alice"), "")
	req.Equal(http.StatusOK, resp.StatusCode)
	var users map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&users))
	req.Equal(float64(2), users["count"])
	req.Equal([]any{"alice", "bob"}, users["online_users"])

	// channel members, empty list rather than null
	resp = f.do(t, http.MethodGet, "/api/v1/channel/"+string(channelID)+"/online-members", f.token("alice"), "")
	var members map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&members))
	req.Equal(string(channelID), members["channel_id"])
	req.Equal([]any{}, members["online_members"])
	req.Equal(float64(0), members["count"])

	// user status
	resp = f.do(t, http.MethodGet, "/api/v1/user/bob/status", f.token("alice"), "")
	var status map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&status))
	req.Equal(true, status["is_online"])
	req.Equal("2026-01-02T03:04:05Z", status["last_seen"])
}

func TestServer_OpsEndpointsNeedNoToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/debug/stats", "/metrics"} {
		resp := f.do(t, http.MethodGet, path, "", "")
		req.Equal(http.StatusOK, resp.StatusCode, path)
	}
}

func TestServer_SSEStoreFailureIsUnavailable(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given memberships cannot be loaded
	f.hub.EXPECT().Connect(gomock.Any(), domain.UserID("alice"), gomock.Any()).
		Return(nil, fmt.Errorf("load channel memberships of alice: %w", context.DeadlineExceeded))

	// When alice opens a stream
	resp := f.do(t, http.MethodGet, "/api/v1/sse", f.token("alice"), "")

	// Then the stream is refused
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}
