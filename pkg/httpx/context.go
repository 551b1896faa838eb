package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID carries the authenticated identity ID.
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeySessionID carries the validated session identifier.
	CtxKeySessionID ctxKey = "session_id"
)

// ContextWithSession injects the authenticated user and session IDs for
// downstream handlers.
func ContextWithSession(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeySessionID, sessionID)
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the validated session ID, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
