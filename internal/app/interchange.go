package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/waybar-calendar/internal/ics"
	"github.com/rbright/waybar-calendar/internal/service"
)

func newExportCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.ics|->",
		Short: "Write every event to an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				snapshot, err := svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}

				if args[0] == "-" {
					_, err := ics.Export(cmd.OutOrStdout(), snapshot, env.Now())
					return err
				}

				file, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				count, err := ics.Export(file, snapshot, env.Now())
				if closeErr := file.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("close %s: %w", args[0], closeErr)
				}
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d event(s) to %s\n", count, args[0])
				return nil
			})
		},
	}
}

func newImportCommand(env *Env) *cobra.Command {
	var calendarID string
	cmd := &cobra.Command{
		Use:   "import <file.ics|->",
		Short: "Import events from an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer func() {
					_ = file.Close()
				}()
				r = file
			}

			result, err := ics.Import(r, time.Local)
			if err != nil {
				return err
			}
			for _, warning := range result.Warnings {
				env.Logger.Warn().Str("file", args[0]).Msg(warning)
			}

			return withService(cmd.Context(), env, func(svc *service.Service) error {
				count, err := svc.ImportEvents(cmd.Context(), result.Events, calendarID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d event(s), skipped %d\n", count, result.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "calendar for events without a known calendar (default first)")
	return cmd
}
