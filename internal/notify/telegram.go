package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/reminder"
)

type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram forwards reminders to a single chat.
type Telegram struct {
	api    chatSender
	chatID int64
	logger zerolog.Logger
}

func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram notifier authorized")

	return &Telegram{api: api, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Close() error { return nil }

// RequestPermission is satisfied once the bot is authorized and a chat is
// configured.
func (t *Telegram) RequestPermission(context.Context) error {
	if t.api == nil || t.chatID == 0 {
		return errors.New("telegram notifier is not configured")
	}
	return nil
}

func (t *Telegram) PermissionGranted(context.Context) bool {
	return t.api != nil && t.chatID != 0
}

func (t *Telegram) Present(ctx context.Context, payload reminder.Payload, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(Title), html.EscapeString(Body(payload)))
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram reminder %s: %w", tag, err)
	}
	t.logger.Debug().Str("tag", tag).Int64("chat_id", t.chatID).Msg("telegram reminder sent")
	return nil
}
