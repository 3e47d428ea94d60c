package auth

import "context"

type contextKey struct{}

var userIDKey = contextKey{}

// ContextWithUserID attaches the authenticated user id to the request
// context; set by the auth middleware after the token check.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext reads the authenticated user id. The boolean is false
// on paths that skipped the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
