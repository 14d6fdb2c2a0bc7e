package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

var ErrSelectionCancelled = errors.New("calendar selection cancelled")

// SelectVisible shows a zenity checklist and returns the ids of the
// calendars left checked. Currently visible calendars start checked.
func SelectVisible(ctx context.Context, calendars []schedule.Calendar) ([]string, error) {
	if len(calendars) == 0 {
		return nil, fmt.Errorf("no calendars available")
	}

	if !hasGraphicalSession() {
		return nil, fmt.Errorf("calendar selection requires a graphical session")
	}

	if _, err := exec.LookPath("zenity"); err != nil {
		return nil, fmt.Errorf("zenity is required for calendar selection")
	}

	cmd := exec.CommandContext(ctx, "zenity", checklistArgs(calendars)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, ErrSelectionCancelled
		}
		return nil, fmt.Errorf("zenity selector failed: %w", err)
	}

	return normalizeIDs(parseSelectionOutput(string(out))), nil
}

func hasGraphicalSession() bool {
	return strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" || strings.TrimSpace(os.Getenv("DISPLAY")) != ""
}

func checklistArgs(calendars []schedule.Calendar) []string {
	args := []string{
		"--list",
		"--checklist",
		"--title=Waybar Calendar",
		"--text=Select calendars to show",
		"--modal",
		"--width=640",
		"--height=480",
		"--separator=\n",
		"--print-column=4",
		"--column=Show",
		"--column=Calendar",
		"--column=Color",
		"--column=ID",
		"--hide-column=4",
	}

	for _, calendar := range calendars {
		checked := "FALSE"
		if calendar.Visible {
			checked = "TRUE"
		}

		color := strings.TrimSpace(calendar.Color)
		if color == "" {
			color = "-"
		}

		args = append(args, checked, calendarLabel(calendar), color, calendar.ID)
	}
	return args
}

func parseSelectionOutput(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '\n' || r == '|'
	})
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		result = append(result, value)
	}
	return result
}

func calendarLabel(calendar schedule.Calendar) string {
	name := strings.TrimSpace(calendar.Name)
	if name == "" {
		return calendar.ID
	}
	return name
}

func normalizeIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	sort.Strings(result)
	return result
}
