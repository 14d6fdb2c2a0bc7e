package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/reminder"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Command presents reminders by shelling out to notify-send.
type Command struct {
	binary   string
	lookPath func(string) (string, error)
	run      runFunc
	logger   zerolog.Logger

	mu      sync.Mutex
	granted bool
}

func NewCommand(logger zerolog.Logger) *Command {
	return &Command{
		binary:   "notify-send",
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		logger: logger,
	}
}

func (c *Command) Close() error { return nil }

func (c *Command) RequestPermission(context.Context) error {
	_, err := c.lookPath(c.binary)

	c.mu.Lock()
	c.granted = err == nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s not found: %w", c.binary, err)
	}
	return nil
}

func (c *Command) PermissionGranted(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.granted
}

func (c *Command) Present(ctx context.Context, payload reminder.Payload, tag string) error {
	args := []string{
		"--app-name=" + AppName,
		"--icon=x-office-calendar",
		"-h", "string:x-dunst-stack-tag:" + tag,
		Title,
		Body(payload),
	}

	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", c.binary, err, detail)
		}
		return fmt.Errorf("%s: %w", c.binary, err)
	}
	c.logger.Debug().Str("tag", tag).Msg("notify-send reminder sent")
	return nil
}
