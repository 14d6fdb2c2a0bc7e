package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rbright/waybar-calendar/internal/daemon"
	"github.com/rbright/waybar-calendar/internal/notify"
	"github.com/rbright/waybar-calendar/internal/reminder"
	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/service"
	"github.com/rbright/waybar-calendar/internal/state"
)

func newRemindCommand(env *Env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder daemon until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withService(ctx, env, func(svc *service.Service) error {
				if dryRun {
					return printPlan(cmd, env, svc)
				}
				return runDaemon(ctx, env, svc)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the reminders that would be armed and exit")
	return cmd
}

func printPlan(cmd *cobra.Command, env *Env, svc *service.Service) error {
	snapshot, err := svc.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	now := env.Now()
	planned := reminder.Plan(snapshot.Aggregate(reminder.CandidateWindow(now, snapshot.Events)), now)
	out := cmd.OutOrStdout()
	if len(planned) == 0 {
		_, _ = fmt.Fprintf(out, "No reminders in the next %s\n", schedule.HumanizeDuration(reminder.Horizon))
		return nil
	}
	for _, item := range planned {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", item.FireAt.Format("Mon 2006-01-02 15:04"), item.Key.Tag(), notify.Body(item.Payload))
	}
	return nil
}

func runDaemon(ctx context.Context, env *Env, svc *service.Service) error {
	notifier, err := env.NewNotifier(ctx)
	if err != nil {
		return fmt.Errorf("connect notifier: %w", err)
	}
	defer func() {
		_ = notifier.Close()
	}()

	scheduler := reminder.NewScheduler(notifier, reminder.WithLogger(env.Logger))

	opts := []daemon.Option{
		daemon.WithRescan(env.Config.Rescan),
		daemon.WithLogger(env.Logger),
		daemon.WithAfterSync(func(_ context.Context, snapshot schedule.Snapshot) {
			if _, err := renderStatus(env, snapshot); err != nil {
				env.Logger.Warn().Err(err).Msg("refresh menu")
			}
		}),
	}
	if dir, files := watchTargets(env); dir != "" {
		opts = append(opts, daemon.WithWatch(dir, files...))
	}

	return daemon.New(svc, notifier, scheduler, opts...).Run(ctx)
}

// watchTargets names the files whose changes should trigger a reconcile.
func watchTargets(env *Env) (string, []string) {
	switch strings.ToLower(strings.TrimSpace(env.Config.Store)) {
	case "", state.BackendJSON:
		return env.Config.StateDir, []string{state.EventsFile, state.CalendarsFile}
	case state.BackendSQLite:
		base := filepath.Base(env.Config.DBPath)
		return filepath.Dir(env.Config.DBPath), []string{base, base + "-wal"}
	default:
		return "", nil
	}
}
