package logging

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	actionIDKey  contextKey = "action_id"
)

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithActionID adds an action ID to the context.
func WithActionID(ctx context.Context, actionID string) context.Context {
	return context.WithValue(ctx, actionIDKey, actionID)
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetActionID retrieves the action ID from the context.
func GetActionID(ctx context.Context) string {
	if id, ok := ctx.Value(actionIDKey).(string); ok {
		return id
	}
	return ""
}
