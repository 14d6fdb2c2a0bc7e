package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/service"
)

type eventFlags struct {
	date     string
	time     string
	text     string
	calendar string
	repeat   string
	remind   int
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "anchor date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.time, "time", service.DefaultEventTime, "start time HH:MM")
	cmd.Flags().StringVar(&f.text, "text", "", "event title")
	cmd.Flags().StringVar(&f.calendar, "calendar", "", "calendar id")
	cmd.Flags().StringVar(&f.repeat, "repeat", string(schedule.RecurrenceNone), "recurrence: none, daily, weekly or monthly")
	cmd.Flags().IntVar(&f.remind, "remind", service.DefaultReminderMinutes, "reminder minutes before start (0 fires at the start time)")
}

func newEventCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create, edit, move and delete events",
	}
	cmd.AddCommand(
		newEventAddCommand(env),
		newEventEditCommand(env),
		newEventMoveCommand(env),
		newEventDeleteCommand(env),
		newEventListCommand(env),
	)
	return cmd
}

func newEventAddCommand(env *Env) *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Add an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				calendars, err := svc.Calendars(cmd.Context())
				if err != nil {
					return err
				}

				in := service.DefaultEventInput(schedule.Today(env.Now()), calendars)
				if flags.date != "" {
					in.Date = flags.date
				}
				in.Time = flags.time
				in.Text = flags.text
				if len(args) > 0 {
					in.Text = strings.Join(args, " ")
				}
				if flags.calendar != "" {
					in.CalendarID = flags.calendar
				}
				in.Recurrence = flags.repeat
				in.ReminderMinutes = flags.remind

				event, err := svc.CreateEvent(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created event %s on %s at %s\n", event.ID, event.Date, event.Time)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEventEditCommand(env *Env) *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an event; unset flags are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			var patch service.EventPatch
			if changed("date") {
				patch.Date = &flags.date
			}
			if changed("time") {
				patch.Time = &flags.time
			}
			if changed("text") {
				patch.Text = &flags.text
			}
			if changed("calendar") {
				patch.CalendarID = &flags.calendar
			}
			if changed("repeat") {
				patch.Recurrence = &flags.repeat
			}
			if changed("remind") {
				patch.ReminderMinutes = &flags.remind
			}

			return withService(cmd.Context(), env, func(svc *service.Service) error {
				event, err := svc.UpdateEvent(cmd.Context(), schedule.EventID(args[0]), patch)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated event %s\n", event.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEventMoveCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <date>",
		Short: "Move an event to a new anchor date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := schedule.ParseDate(args[1])
			if err != nil {
				return fmt.Errorf("%w: %q", service.ErrInvalidDate, args[1])
			}
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				event, err := svc.MoveEvent(cmd.Context(), schedule.EventID(args[0]), date)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved event %s to %s\n", event.ID, event.Date)
				return nil
			})
		},
	}
}

func newEventDeleteCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an event and all of its occurrences",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				if err := svc.DeleteEvent(cmd.Context(), schedule.EventID(args[0])); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", args[0])
				return nil
			})
		},
	}
}

func newEventListCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored event definitions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), env, func(svc *service.Service) error {
				snapshot, err := svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(snapshot.Events) == 0 {
					_, _ = fmt.Fprintln(out, "No events")
					return nil
				}
				for _, event := range snapshot.Events {
					calendar := event.CalendarID
					if resolved, ok := snapshot.Calendar(event.CalendarID); ok {
						calendar = resolved.Name
					}
					_, _ = fmt.Fprintf(out, "%s\t%s %s\t%s\t[%s]\t%s\t%dm\n",
						event.ID, event.Date, event.Time, event.Text, calendar, event.Recurrence, event.ReminderMinutes)
				}
				return nil
			})
		},
	}
}
