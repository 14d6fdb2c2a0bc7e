package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbright/waybar-calendar/internal/selector"
	"github.com/rbright/waybar-calendar/internal/service"
)

func newCalendarCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Manage calendars and their visibility",
	}
	cmd.AddCommand(
		newCalendarAddCommand(env),
		newCalendarRenameCommand(env),
		newCalendarToggleCommand(env),
		newCalendarListCommand(env),
		newCalendarSelectCommand(env),
	)
	return cmd
}

func newCalendarAddCommand(env *Env) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a visible calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				calendar, err := svc.AddCalendar(cmd.Context(), args[0], color)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added calendar %s (%s)\n", calendar.Name, calendar.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", service.DefaultCalendarColor, "display color")
	return cmd
}

func newCalendarRenameCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a calendar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				calendar, err := svc.RenameCalendar(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", calendar.ID, calendar.Name)
				return nil
			})
		},
	}
}

func newCalendarToggleCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Show or hide a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				calendar, err := svc.ToggleCalendar(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", calendar.Name, visibilityLabel(calendar.Visible))
				return nil
			})
		},
	}
}

func newCalendarListCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List calendars",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				calendars, err := svc.Calendars(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(calendars) == 0 {
					_, _ = fmt.Fprintln(out, "No calendars")
					return nil
				}
				for _, calendar := range calendars {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", calendar.ID, calendar.Name, calendar.Color, visibilityLabel(calendar.Visible))
				}
				return nil
			})
		},
	}
}

func newCalendarSelectCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Choose visible calendars with a checklist dialog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withService(ctx, env, func(svc *service.Service) error {
				calendars, err := svc.Calendars(ctx)
				if err != nil {
					return err
				}

				selected, err := env.SelectVisible(ctx, calendars)
				if err != nil {
					if errors.Is(err, selector.ErrSelectionCancelled) {
						return nil
					}
					return err
				}

				updated, err := svc.SetVisibleCalendars(ctx, selected)
				if err != nil {
					return err
				}
				if _, err := buildStatus(ctx, env, svc); err != nil {
					return err
				}

				visible := 0
				for _, calendar := range updated {
					if calendar.Visible {
						visible++
					}
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d calendar(s)\n", visible, len(updated))
				return nil
			})
		},
	}
}

func visibilityLabel(visible bool) string {
	if visible {
		return "visible"
	}
	return "hidden"
}
