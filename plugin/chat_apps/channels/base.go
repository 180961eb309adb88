// Package channels provides the ChatChannel interface for all chat platform integrations.
package channels

import (
	"context"

	"github.com/hrygo/finsense/plugin/chat_apps"
)

// ChatChannel defines the interface for all chat platform integrations.
type ChatChannel interface {
	// Name returns the platform name (e.g., "telegram").
	Name() chat_apps.Platform

	// Updates streams incoming messages until ctx is done, then closes the channel.
	Updates(ctx context.Context) <-chan *chat_apps.IncomingMessage

	// SendMessage sends a single message, with an optional inline keyboard.
	SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error

	// EditMessage replaces the text of a message sent earlier, dropping its keyboard.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error

	// AnswerCallback acknowledges a button press.
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// Close closes any open connections and releases resources.
	Close() error
}

// Notifier adapts a ChatChannel to deliver plain text to an actor's private chat.
type Notifier struct {
	Channel ChatChannel
}

// Send delivers text to actorID. Private chats share the user's ID.
func (n Notifier) Send(ctx context.Context, actorID int64, text string) error {
	if n.Channel == nil {
		return ErrNoChannelForPlatform
	}
	if err := n.Channel.SendMessage(ctx, &chat_apps.OutgoingMessage{ChatID: actorID, Content: text}); err != nil {
		return &ChannelError{Code: "SEND_FAILED", Message: "failed to send message", Err: err}
	}
	return nil
}

// Errors
var (
	ErrNoChannelForPlatform = &ChannelError{Code: "NO_CHANNEL", Message: "no channel registered for platform"}
	ErrInvalidPayload       = &ChannelError{Code: "INVALID_PAYLOAD", Message: "could not parse update payload"}
	ErrUnauthorized         = &ChannelError{Code: "UNAUTHORIZED", Message: "bot token rejected by platform"}
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
	case "NO_CHANNEL", "INVALID_PAYLOAD", "UNAUTHORIZED":
		return false
	default:
		return true
	}
}
