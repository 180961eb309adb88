// Package telegram implements the Telegram Bot channel.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/finsense/plugin/chat_apps"
	"github.com/hrygo/finsense/plugin/chat_apps/channels"
)

const (
	DefaultPollTimeout = 30 // seconds, long-poll window of getUpdates
	MaxMessageLength   = 4096
)

// TelegramConfig holds configuration for the Telegram channel.
type TelegramConfig struct {
	BotToken    string
	APIEndpoint string       // Format string with token and method, defaults to tgbotapi.APIEndpoint
	Client      *http.Client // Defaults to a client with a timeout above the poll window
	PollTimeout int
}

// TelegramChannel implements ChatChannel for Telegram Bot API.
type TelegramChannel struct {
	bot      *tgbotapi.BotAPI
	config   *TelegramConfig
	stopOnce sync.Once
}

// NewTelegramChannel creates a new Telegram channel. It calls getMe to check the token.
func NewTelegramChannel(config *TelegramConfig) (*TelegramChannel, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}
	endpoint := config.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: time.Duration(config.PollTimeout+10) * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(config.BotToken, endpoint, client)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", channels.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	slog.Info("telegram: bot authorized", "username", bot.Self.UserName)

	return &TelegramChannel{bot: bot, config: config}, nil
}

// Name returns the platform name.
func (t *TelegramChannel) Name() chat_apps.Platform {
	return chat_apps.PlatformTelegram
}

// Updates long-polls getUpdates and converts each update. Updates that carry
// no text or button press are skipped. It may be called once per channel.
func (t *TelegramChannel) Updates(ctx context.Context) <-chan *chat_apps.IncomingMessage {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.config.PollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := t.bot.GetUpdatesChan(u)

	out := make(chan *chat_apps.IncomingMessage)
	go func() {
		defer close(out)
		defer t.stop()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, err := ParseUpdate(update)
				if err != nil {
					slog.Debug("telegram: skipping update", "update_id", update.UpdateID, "error", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// ParseUpdate converts a Telegram update into an IncomingMessage.
func ParseUpdate(update tgbotapi.Update) (*chat_apps.IncomingMessage, error) {
	msg := &chat_apps.IncomingMessage{
		Platform:  chat_apps.PlatformTelegram,
		Timestamp: time.Now(),
		Metadata:  map[string]string{"update_id": strconv.Itoa(update.UpdateID)},
	}

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil {
			return nil, channels.ErrInvalidPayload
		}
		msg.Type = chat_apps.MessageTypeCallback
		msg.ActorID = q.From.ID
		msg.ChatID = q.From.ID
		if q.Message != nil {
			msg.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				msg.ChatID = q.Message.Chat.ID
			}
		}
		msg.CallbackID = q.ID
		msg.CallbackData = q.Data
		msg.Metadata["username"] = q.From.UserName
		return msg, nil

	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.Chat == nil || m.Text == "" {
			return nil, channels.ErrInvalidPayload
		}
		msg.ActorID = m.From.ID
		msg.ChatID = m.Chat.ID
		msg.MessageID = m.MessageID
		msg.Content = m.Text
		msg.Metadata["username"] = m.From.UserName
		msg.Metadata["language_code"] = m.From.LanguageCode
		if m.Date > 0 {
			msg.Timestamp = m.Time()
		}
		if m.IsCommand() {
			msg.Type = chat_apps.MessageTypeCommand
			msg.Command = m.Command()
			msg.Args = strings.Fields(m.CommandArguments())
		} else {
			msg.Type = chat_apps.MessageTypeText
		}
		return msg, nil

	default:
		return nil, channels.ErrInvalidPayload
	}
}

// SendMessage sends a message to Telegram.
func (t *TelegramChannel) SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Debug("telegram: sending message", "chat_id", msg.ChatID, "keyboard", len(msg.Keyboard) > 0)

	content := msg.Content
	if runes := []rune(content); len(runes) > MaxMessageLength {
		content = string(runes[:MaxMessageLength])
	}

	tgMsg := tgbotapi.NewMessage(msg.ChatID, content)
	if msg.ParseMode != "" {
		tgMsg.ParseMode = msg.ParseMode
	}
	if len(msg.Keyboard) > 0 {
		tgMsg.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}
	if _, err := t.bot.Send(tgMsg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", msg.ChatID, err)
	}
	return nil
}

// Send implements finance.Notifier.
func (t *TelegramChannel) Send(ctx context.Context, actorID int64, text string) error {
	return t.SendMessage(ctx, &chat_apps.OutgoingMessage{ChatID: actorID, Content: text})
}

// EditMessage replaces the text of an earlier message.
func (t *TelegramChannel) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("telegram edit message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (t *TelegramChannel) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram answer callback: %w", err)
	}
	return nil
}

// Close stops update polling.
func (t *TelegramChannel) Close() error {
	t.stop()
	return nil
}

func (t *TelegramChannel) stop() {
	t.stopOnce.Do(t.bot.StopReceivingUpdates)
}

func inlineKeyboard(rows [][]chat_apps.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// Ensure TelegramChannel implements ChatChannel
var _ channels.ChatChannel = (*TelegramChannel)(nil)
