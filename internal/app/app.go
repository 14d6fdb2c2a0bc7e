package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rbright/waybar-calendar/internal/config"
	"github.com/rbright/waybar-calendar/internal/notify"
	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/selector"
	"github.com/rbright/waybar-calendar/internal/service"
	"github.com/rbright/waybar-calendar/internal/state"
	"github.com/rbright/waybar-calendar/internal/waybar"
)

// Env carries configuration and the collaborators a command needs. Nil
// functions fall back to the real implementations.
type Env struct {
	Config config.Runtime
	Logger zerolog.Logger
	Stdout io.Writer

	Now           func() time.Time
	NewID         func() string
	OpenStore     func(ctx context.Context) (state.Store, error)
	NewNotifier   func(ctx context.Context) (notify.Notifier, error)
	SelectVisible func(ctx context.Context, calendars []schedule.Calendar) ([]string, error)
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.OpenStore == nil {
		e.OpenStore = func(ctx context.Context) (state.Store, error) {
			return state.Open(ctx, state.Options{
				Backend:  e.Config.Store,
				StateDir: e.Config.StateDir,
				DBPath:   e.Config.DBPath,
				Logger:   e.Logger,
			})
		}
	}
	if e.NewNotifier == nil {
		e.NewNotifier = func(ctx context.Context) (notify.Notifier, error) {
			return notify.New(ctx, notify.Options{
				Kind:           e.Config.Notifier,
				TelegramToken:  e.Config.TelegramToken,
				TelegramChatID: e.Config.TelegramChatID,
				Logger:         e.Logger,
			})
		}
	}
	if e.SelectVisible == nil {
		e.SelectVisible = selector.SelectVisible
	}
	return e
}

// Run executes the command line in args. With no arguments it prints the
// Waybar status.
func Run(ctx context.Context, args []string, env Env) error {
	env = env.withDefaults()

	root := newRootCommand(&env)
	root.SetArgs(args)
	root.SetOut(env.Stdout)
	root.SetErr(io.Discard)
	return root.ExecuteContext(ctx)
}

func newRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "waybar-calendar",
		Short:         "Local calendar with recurring events and reminders for Waybar",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, env)
		},
	}

	root.AddCommand(
		newStatusCommand(env),
		newRefreshCommand(env),
		newAgendaCommand(env),
		newEventCommand(env),
		newCalendarCommand(env),
		newRemindCommand(env),
		newExportCommand(env),
		newImportCommand(env),
	)
	return root
}

func newStatusCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print Waybar JSON for the next event and rewrite the dropdown menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, env)
		},
	}
}

func newRefreshCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rewrite the dropdown menu without printing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				_, err := buildStatus(cmd.Context(), env, svc)
				return err
			})
		},
	}
}

// runStatus always prints JSON so the bar never shows a stale module.
func runStatus(cmd *cobra.Command, env *Env) error {
	var out waybar.Output
	err := withService(cmd.Context(), env, func(svc *service.Service) error {
		var statusErr error
		out, statusErr = buildStatus(cmd.Context(), env, svc)
		return statusErr
	})
	if err != nil {
		env.Logger.Error().Err(err).Msg("build status")
		if menuErr := state.WriteMenu(env.Config.MenuPath, state.MenuData{StatusLine: "Calendar unavailable"}); menuErr != nil {
			env.Logger.Warn().Err(menuErr).Msg("write fallback menu")
		}
		out = waybar.RenderError(fmt.Sprintf("Calendar unavailable: %s", err.Error()))
	}
	return writeOutput(cmd.OutOrStdout(), out)
}

func buildStatus(ctx context.Context, env *Env, svc *service.Service) (waybar.Output, error) {
	snapshot, err := svc.Snapshot(ctx)
	if err != nil {
		return waybar.Output{}, err
	}
	return renderStatus(env, snapshot)
}

// renderStatus writes the dropdown menu for snapshot and returns the bar
// output. The status window covers today plus LookaheadDays.
func renderStatus(env *Env, snapshot schedule.Snapshot) (waybar.Output, error) {
	now := env.Now()
	today := schedule.Today(now)
	window := schedule.Window{Start: today, End: today.AddDays(env.Config.LookaheadDays)}
	upcoming := schedule.Upcoming(snapshot.Aggregate(window), now, env.Config.MaxItems)

	hidden := 0
	for _, calendar := range snapshot.Calendars {
		if !calendar.Visible {
			hidden++
		}
	}

	menu := state.MenuData{
		StatusLine: fmt.Sprintf("No events in the next %d days", env.Config.LookaheadDays),
		Now:        now,
		Items:      upcoming,
	}
	if len(upcoming) > 0 {
		next := upcoming[0]
		menu.Next = &next
		menu.StatusLine = "Upcoming events"
	}
	if err := state.WriteMenu(env.Config.MenuPath, menu); err != nil {
		return waybar.Output{}, err
	}

	return waybar.Render(waybar.Status{
		Now:           now,
		LookaheadDays: env.Config.LookaheadDays,
		Upcoming:      upcoming,
		Hidden:        hidden,
	}), nil
}

// withService opens the configured store for the duration of fn.
func withService(ctx context.Context, env *Env, fn func(svc *service.Service) error) error {
	if err := state.EnsureDirs(env.Config.StateDir); err != nil {
		return err
	}

	store, err := env.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	opts := []service.Option{service.WithLogger(env.Logger)}
	if env.NewID != nil {
		opts = append(opts, service.WithIDGenerator(env.NewID))
	}
	return fn(service.New(store, opts...))
}

func writeOutput(w io.Writer, output waybar.Output) error {
	payload, err := waybar.Encode(output)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}
