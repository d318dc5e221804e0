package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies session and action IDs from the event context.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	if sessionID := GetSessionID(ctx); sessionID != "" {
		e.Str("session_id", sessionID)
	}
	if actionID := GetActionID(ctx); actionID != "" {
		e.Str("action_id", actionID)
	}
}
