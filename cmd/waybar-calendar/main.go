package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbright/waybar-calendar/internal/app"
	"github.com/rbright/waybar-calendar/internal/config"
	"github.com/rbright/waybar-calendar/internal/logging"
)

func main() {
	args := os.Args[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, "waybar-calendar", cfg.LogLevel)
	if cfg.LogFormat == "console" {
		logger = logging.Console(os.Stderr, "waybar-calendar", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The reminder daemon runs until signalled; every other command is bounded.
	if !isDaemon(args) {
		timeout := cfg.Timeout + 5*time.Second
		if timeout < 10*time.Second {
			timeout = 10 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	env := app.Env{Config: cfg, Logger: logger, Stdout: os.Stdout}
	if err := app.Run(ctx, args, env); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(2)
	}
}

func isDaemon(args []string) bool {
	if len(args) == 0 || args[0] != "remind" {
		return false
	}
	for _, arg := range args[1:] {
		if arg == "--dry-run" || arg == "--dry-run=true" {
			return false
		}
	}
	return true
}
