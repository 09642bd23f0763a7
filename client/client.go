package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"tutor-realtime/domain"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client talks to one realtime process. Query answers only cover the
// connections of that process.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type onlineUsers struct {
	OnlineUsers []domain.UserID `json:"online_users"`
	Count       int             `json:"count"`
}

type onlineMembers struct {
	ChannelID     domain.ChannelID `json:"channel_id"`
	OnlineMembers []domain.UserID  `json:"online_members"`
}

func (c *Client) OnlineUsers(ctx context.Context) ([]domain.UserID, error) {
	var resp onlineUsers
	if err := c.get(ctx, "/api/v1/online-users", &resp); err != nil {
		return nil, err
	}
	return resp.OnlineUsers, nil
}

func (c *Client) OnlineMembers(ctx context.Context, channelID domain.ChannelID) ([]domain.UserID, error) {
	var resp onlineMembers
	if err := c.get(ctx, "/api/v1/channel/"+url.PathEscape(string(channelID))+"/online-members", &resp); err != nil {
		return nil, err
	}
	return resp.OnlineMembers, nil
}

func (c *Client) Status(ctx context.Context, userID domain.UserID) (domain.Presence, error) {
	var presence domain.Presence
	err := c.get(ctx, "/api/v1/user/"+url.PathEscape(string(userID))+"/status", &presence)
	return presence, err
}

func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)
	err := c.get(ctx, "/debug/stats", &stats)
	return stats, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// Tail opens a WebSocket as the token's user and hands every frame to fn
// until the context is canceled or the server closes the stream.
func (c *Client) Tail(ctx context.Context, fn func(frame map[string]any)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fn(frame)
	}
}

// CheckHealth asks the gRPC health service for the serving status of service.
func CheckHealth(ctx context.Context, address, service string) (string, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", fmt.Errorf("could not connect to %s: %w", address, err)
	}
	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	return resp.Status.String(), nil
}
