package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/service"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type agendaView struct {
	Mode  schedule.ViewMode `json:"mode" yaml:"mode"`
	Start string            `json:"start" yaml:"start"`
	End   string            `json:"end" yaml:"end"`
	Items []agendaItem      `json:"items" yaml:"items"`
}

type agendaItem struct {
	ID              string `json:"id" yaml:"id"`
	Date            string `json:"date" yaml:"date"`
	Time            string `json:"time" yaml:"time"`
	Text            string `json:"text" yaml:"text"`
	CalendarID      string `json:"calendarId" yaml:"calendarId"`
	Calendar        string `json:"calendar" yaml:"calendar"`
	Color           string `json:"color,omitempty" yaml:"color,omitempty"`
	Recurrence      string `json:"recurrence" yaml:"recurrence"`
	ReminderMinutes int    `json:"reminderMinutes" yaml:"reminderMinutes"`
}

func newAgendaCommand(env *Env) *cobra.Command {
	var (
		mode   string
		date   string
		offset int
		output string
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List occurrences for a day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			viewMode, err := schedule.ParseViewMode(mode)
			if err != nil {
				return err
			}

			ref := schedule.Today(env.Now())
			if strings.TrimSpace(date) != "" {
				ref, err = schedule.ParseDate(date)
				if err != nil {
					return fmt.Errorf("%w: %q", service.ErrInvalidDate, date)
				}
			}
			ref = schedule.ShiftReference(ref, viewMode, offset)
			window := schedule.ComputeWindow(ref, viewMode)

			return withService(cmd.Context(), env, func(svc *service.Service) error {
				snapshot, err := svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				view := buildAgenda(viewMode, window, snapshot.Aggregate(window))
				return writeAgenda(cmd.OutOrStdout(), output, view)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(env.Config.ViewMode), "view mode: day, week or month")
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&offset, "offset", 0, "shift the reference by N periods")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}

func buildAgenda(mode schedule.ViewMode, window schedule.Window, occurrences []schedule.Occurrence) agendaView {
	view := agendaView{
		Mode:  mode,
		Start: window.Start.Key(),
		End:   window.End.Key(),
		Items: make([]agendaItem, 0, len(occurrences)),
	}
	for _, occ := range occurrences {
		view.Items = append(view.Items, agendaItem{
			ID:              string(occ.ID),
			Date:            occ.OccDate.Key(),
			Time:            occ.Time,
			Text:            occ.Text,
			CalendarID:      occ.CalendarID,
			Calendar:        occ.Calendar.Name,
			Color:           occ.Calendar.Color,
			Recurrence:      string(occ.Recurrence),
			ReminderMinutes: occ.ReminderMinutes,
		})
	}
	return view
}

func writeAgenda(w io.Writer, format string, view agendaView) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(view); err != nil {
			return fmt.Errorf("encode agenda json: %w", err)
		}
		return nil
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(view); err != nil {
			return fmt.Errorf("encode agenda yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("flush agenda yaml: %w", err)
		}
		return nil
	case "", outputText:
		_, err := io.WriteString(w, agendaText(view))
		if err != nil {
			return fmt.Errorf("write agenda: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func agendaText(view agendaView) string {
	var b strings.Builder
	if view.Start == view.End {
		_, _ = fmt.Fprintf(&b, "%s view: %s\n", titleCase(string(view.Mode)), view.Start)
	} else {
		_, _ = fmt.Fprintf(&b, "%s view: %s to %s\n", titleCase(string(view.Mode)), view.Start, view.End)
	}

	if len(view.Items) == 0 {
		_, _ = fmt.Fprint(&b, "No events\n")
		return b.String()
	}

	currentDate := ""
	for _, item := range view.Items {
		if item.Date != currentDate {
			currentDate = item.Date
			_, _ = fmt.Fprintf(&b, "\n%s\n", dayHeading(item.Date))
		}
		line := fmt.Sprintf("  %s  %s", item.Time, item.Text)
		if item.Calendar != "" {
			line += fmt.Sprintf(" [%s]", item.Calendar)
		}
		if item.Recurrence != "" && item.Recurrence != string(schedule.RecurrenceNone) {
			line += fmt.Sprintf(" (%s)", item.Recurrence)
		}
		_, _ = fmt.Fprintln(&b, line)
	}
	return b.String()
}

func dayHeading(key string) string {
	date, err := schedule.ParseDate(key)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s %s", date.Weekday().String()[:3], key)
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
