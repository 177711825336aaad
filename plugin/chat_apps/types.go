// Package chat_apps provides chat platform integration for the Angelo assistant.
package chat_apps

import "time"

// MessageType represents the type of message.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeAudio
	MessageTypeUnsupported
)

// String returns the string representation of MessageType.
func (m MessageType) String() string {
	switch m {
	case MessageTypeText:
		return "text"
	case MessageTypeAudio:
		return "audio"
	default:
		return "unsupported"
	}
}

// Platform represents a supported chat platform.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
)

// IncomingMessage represents a message from a chat platform.
type IncomingMessage struct {
	Platform       Platform
	PlatformUserID string
	PlatformChatID string
	Type           MessageType
	Content        string // text, or caption for media
	Command        string // bot command without the slash, if any
	MediaID        string // platform file id for audio
	MimeType       string
	Timestamp      time.Time
}

// OutgoingMessage represents a message to send to a chat platform.
type OutgoingMessage struct {
	PlatformChatID string
	Type           MessageType
	Content        string // text, or caption for audio
	MediaData      []byte
	FileName       string
}
