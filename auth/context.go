package auth

import (
	"context"
	"net/http"
	"strings"
	"tutor-realtime/domain"
)

type contextKey string

const UserIDKey contextKey = "user_id"

func WithUserID(ctx context.Context, userID domain.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (domain.UserID, bool) {
	userID, ok := ctx.Value(UserIDKey).(domain.UserID)
	return userID, ok && userID != ""
}

// BearerToken reads the "Authorization: Bearer" header, falling back to the
// "token" query parameter browsers use for WebSocket and EventSource.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
