// Package events provides event callback types for the tool bridge.
package events

import (
	"log/slog"
)

// Event types emitted while the bridge talks to the model.
const (
	EventTypeThinking   = "thinking"
	EventTypeToolUse    = "tool_use"
	EventTypeToolResult = "tool_result"
	EventTypeAnswer     = "answer"
)

// ToolEvent is the payload of tool_use and tool_result events.
type ToolEvent struct {
	ToolName   string `json:"tool_name"`
	Input      string `json:"input,omitempty"`
	Output     string `json:"output,omitempty"`
	Status     string `json:"status,omitempty"`
	Iteration  int    `json:"iteration"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Callback is the unified event callback type.
// It receives an event type string and arbitrary event data.
type Callback func(eventType string, eventData any) error

// SafeCallback is a callback variant that does not propagate errors.
type SafeCallback func(eventType string, eventData any)

// NoopCallback is a callback that does nothing.
var NoopCallback Callback = func(string, any) error { return nil }

// WrapSafe converts a Callback to a SafeCallback.
// Errors from the original callback are logged but not propagated.
// A nil callback becomes a no-op.
func WrapSafe(cb Callback) SafeCallback {
	if cb == nil {
		return func(string, any) {}
	}
	return func(eventType string, eventData any) {
		if err := cb(eventType, eventData); err != nil {
			slog.Warn("event callback error (swallowed)",
				"event_type", eventType,
				"error", err)
		}
	}
}
