// Package channels provides the ChatChannel interface for chat platform integrations.
package channels

import (
	"context"

	"github.com/hrygo/angelo/plugin/chat_apps"
)

// ChatChannel is a chat platform that serves assistant conversations.
type ChatChannel interface {
	// Name returns the platform name.
	Name() chat_apps.Platform

	// Run receives messages until ctx is done.
	Run(ctx context.Context) error

	// SendMessage sends a single message to the chat platform.
	SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error

	// DownloadMedia downloads media by platform file id.
	// Returns the media data and MIME type.
	DownloadMedia(ctx context.Context, fileID string) ([]byte, string, error)

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrInvalidPayload      = &ChannelError{Code: "INVALID_PAYLOAD", Message: "could not parse update"}
	ErrMediaDownloadFailed = &ChannelError{Code: "MEDIA_FAILED", Message: "failed to download media"}
	ErrMediaTooLarge       = &ChannelError{Code: "MEDIA_TOO_LARGE", Message: "media exceeds size limit"}
)

// ChannelError represents an error in channel operations.
type ChannelError struct {
	Code    string
	Message string
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the operation can be retried.
func (e *ChannelError) IsRetryable() bool {
	switch e.Code {
	case "INVALID_PAYLOAD", "MEDIA_TOO_LARGE":
		return false
	default:
		return true
	}
}
