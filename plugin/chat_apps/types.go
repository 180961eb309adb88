// Package chat_apps provides chat platform integration for FinSense.
// Supported platforms: Telegram.
package chat_apps

import "time"

// MessageType represents the type of message.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeCommand
	MessageTypeCallback
)

// String returns the string representation of MessageType.
func (m MessageType) String() string {
	switch m {
	case MessageTypeText:
		return "text"
	case MessageTypeCommand:
		return "command"
	case MessageTypeCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Platform represents a supported chat platform.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
)

// IsValid checks if the platform is valid.
func (p Platform) IsValid() bool {
	return p == PlatformTelegram
}

// IncomingMessage represents a message, command or button press from a chat platform.
type IncomingMessage struct {
	Platform     Platform
	ActorID      int64  // Sender's platform user ID
	ChatID       int64  // Chat the message came from
	MessageID    int    // For callbacks, the message carrying the pressed button
	Type         MessageType
	Content      string   // Text content
	Command      string   // Command name without the slash
	Args         []string // Whitespace-separated command arguments
	CallbackID   string
	CallbackData string
	Metadata     map[string]string
	Timestamp    time.Time
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// OutgoingMessage represents a message to send to a chat platform.
type OutgoingMessage struct {
	ChatID    int64
	Content   string
	Keyboard  [][]Button // Inline keyboard rows (optional)
	ParseMode string     // Markdown/HTML parsing mode (optional)
}
