package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/reminder"
)

const (
	AppName = "waybar-calendar"
	Title   = "Calendar reminder"
)

const (
	KindDBus       = "dbus"
	KindNotifySend = "notify-send"
	KindTelegram   = "telegram"
)

// Notifier is a reminder sink that owns a connection.
type Notifier interface {
	reminder.Sink
	Close() error
}

// Body is the text shown under the notification title.
func Body(payload reminder.Payload) string {
	text := strings.TrimSpace(payload.Title)
	if text == "" {
		text = "(untitled)"
	}
	if payload.Time == "" {
		return text
	}
	return text + " — " + payload.Time
}

type Options struct {
	Kind           string
	TelegramToken  string
	TelegramChatID int64
	Logger         zerolog.Logger
}

// New connects the sink selected by opts.Kind.
func New(ctx context.Context, opts Options) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindDBus:
		return NewDesktop(ctx, opts.Logger)
	case KindNotifySend:
		return NewCommand(opts.Logger), nil
	case KindTelegram:
		return NewTelegram(opts.TelegramToken, opts.TelegramChatID, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown notifier %q", opts.Kind)
	}
}
