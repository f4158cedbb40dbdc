package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// maxLoggedContent caps how much assistant text lands in a single debug line.
const maxLoggedContent = 500

// SessionToSlog mirrors Copilot session events to the default logger at
// debug level.
func SessionToSlog(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", event.Type,
	}

	attrs = addIf(attrs, "content", truncate(event.Data.Content))
	attrs = addIf(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = addIf(attrs, "message", event.Data.Message)
	attrs = addIf(attrs, "toolName", event.Data.ToolName)
	attrs = addIf(attrs, "toolCallID", event.Data.ToolCallID)

	slog.Debug("Event received", attrs...)
}

func truncate(s *string) *string {
	if s == nil {
		return nil
	}
	r := []rune(*s)
	if len(r) <= maxLoggedContent {
		return s
	}
	t := string(r[:maxLoggedContent]) + "…"
	return &t
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
