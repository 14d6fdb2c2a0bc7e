package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rbright/waybar-calendar/internal/config"
	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/selector"
	"github.com/rbright/waybar-calendar/internal/service"
	"github.com/rbright/waybar-calendar/internal/state"
	"github.com/rbright/waybar-calendar/internal/waybar"
)

type harness struct {
	t      *testing.T
	env    Env
	dir    string
	stdout *bytes.Buffer
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	dir := t.TempDir()
	counter := 0
	h := &harness{t: t, dir: dir, stdout: &bytes.Buffer{}}
	h.env = Env{
		Config: config.Runtime{
			Store:         state.BackendJSON,
			StateDir:      filepath.Join(dir, "state"),
			MenuDir:       filepath.Join(dir, "menus"),
			MenuPath:      filepath.Join(dir, "menus", "calendar.xml"),
			ViewMode:      schedule.ViewMonth,
			MaxItems:      6,
			LookaheadDays: 7,
		},
		Logger: zerolog.Nop(),
		Stdout: h.stdout,
		Now:    func() time.Time { return now },
		NewID: func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		},
		SelectVisible: func(context.Context, []schedule.Calendar) ([]string, error) {
			return nil, selector.ErrSelectionCancelled
		},
	}
	h.env.OpenStore = func(context.Context) (state.Store, error) {
		return state.OpenFiles(h.env.Config.StateDir, zerolog.Nop())
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	h.stdout.Reset()
	err := Run(context.Background(), args, h.env)
	return h.stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "args %v", args)
	return out
}

func morning() time.Time {
	return time.Date(2024, 3, 5, 8, 45, 0, 0, time.Local)
}

func TestRun_StatusWithoutEventsIsClear(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	out := h.mustRun()

	var output waybar.Output
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	assert.Equal(t, "clear", output.Class)
	assert.Contains(t, output.Tooltip, "No events in the next 7 days")

	menu, err := os.ReadFile(h.env.Config.MenuPath)
	require.NoError(t, err)
	assert.Contains(t, string(menu), "No events in the next 7 days")
}

func TestRun_AddedEventDrivesStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	out := h.mustRun("event", "add", "--date", "2024-03-05", "--time", "09:30", "--repeat", "daily", "--calendar", "cal-work", "Standup")
	assert.Equal(t, "Created event id-1 on 2024-03-05 at 09:30\n", out)

	var output waybar.Output
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("status")), &output))
	assert.Equal(t, "normal soon", output.Class)
	assert.Equal(t, "45m  Standup", output.Text)
	assert.Contains(t, output.Tooltip, "Calendar: Work")
	assert.Contains(t, output.Tooltip, "Repeats: daily")

	menu, err := os.ReadFile(h.env.Config.MenuPath)
	require.NoError(t, err)
	assert.Contains(t, string(menu), "Next: Standup")
	assert.Contains(t, string(menu), `id="item_6"`)
}

func TestRun_StatusStoreFailureStillPrintsJSON(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	h.env.OpenStore = func(context.Context) (state.Store, error) {
		return nil, fmt.Errorf("disk unavailable")
	}

	var output waybar.Output
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("status")), &output))
	assert.Equal(t, "error", output.Class)
	assert.Contains(t, output.Tooltip, "disk unavailable")

	_, err := h.run("refresh")
	assert.ErrorContains(t, err, "disk unavailable")
}

func TestRun_AgendaFormats(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	h.mustRun("event", "add", "--date", "2024-03-05", "--time", "09:30", "--repeat", "daily", "--calendar", "cal-work", "Standup")
	h.mustRun("event", "add", "--date", "2024-03-07", "--time", "08:00", "--calendar", "cal-personal", "Dentist")

	t.Run("json week", func(t *testing.T) {
		var view agendaView
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("agenda", "--mode", "week", "--output", "json")), &view))
		assert.Equal(t, "2024-03-03", view.Start)
		assert.Equal(t, "2024-03-09", view.End)
		require.Len(t, view.Items, 6)
		assert.Equal(t, "Standup", view.Items[0].Text)
		assert.Equal(t, "2024-03-07", view.Items[2].Date)
		assert.Equal(t, "Dentist", view.Items[2].Text)
	})

	t.Run("yaml previous month", func(t *testing.T) {
		var view agendaView
		require.NoError(t, yaml.Unmarshal([]byte(h.mustRun("agenda", "--offset", "-1", "-o", "yaml")), &view))
		assert.Equal(t, schedule.ViewMonth, view.Mode)
		assert.Equal(t, "2024-02-01", view.Start)
		assert.Equal(t, "2024-02-29", view.End)
		assert.Empty(t, view.Items)
	})

	t.Run("text next day", func(t *testing.T) {
		out := h.mustRun("agenda", "--mode", "day", "--date", "2024-03-06", "--offset", "1")
		assert.Equal(t, "Day view: 2024-03-07\n\nThu 2024-03-07\n  08:00  Dentist [Personal]\n  09:30  Standup [Work] (daily)\n", out)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := h.run("agenda", "--date", "2024-13-01")
		assert.ErrorIs(t, err, service.ErrInvalidDate)
	})
}

func TestRun_EventLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	h.mustRun("event", "add", "--date", "2024-03-05", "--text", "Review")

	assert.Equal(t, "Updated event id-1\n", h.mustRun("event", "edit", "id-1", "--text", "Design review", "--remind", "0"))
	assert.Equal(t, "Moved event id-1 to 2024-03-12\n", h.mustRun("event", "move", "id-1", "2024-03-12"))

	list := h.mustRun("event", "list")
	assert.Equal(t, "id-1\t2024-03-12 09:00\tDesign review\t[Personal]\tnone\t0m\n", list)

	assert.Equal(t, "Deleted event id-1\n", h.mustRun("event", "delete", "id-1"))
	assert.Equal(t, "No events\n", h.mustRun("event", "list"))

	_, err := h.run("event", "delete", "id-1")
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestRun_CalendarCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	assert.Equal(t, "Added calendar Family (cal-id-1)\n", h.mustRun("calendar", "add", "Family", "--color", "#00ff00"))
	assert.Equal(t, "Work is now hidden\n", h.mustRun("calendar", "toggle", "cal-work"))
	assert.Equal(t, "Renamed cal-id-1 to Home\n", h.mustRun("calendar", "rename", "cal-id-1", "Home"))

	list := h.mustRun("calendar", "list")
	assert.Equal(t, strings.Join([]string{
		"cal-personal\tPersonal\t#1e88ff\tvisible",
		"cal-work\tWork\t#ff7043\thidden",
		"cal-id-1\tHome\t#00ff00\tvisible",
		"",
	}, "\n"), list)

	_, err := h.run("calendar", "toggle", "cal-missing")
	assert.ErrorIs(t, err, service.ErrCalendarNotFound)
}

func TestRun_CalendarSelect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	assert.Empty(t, h.mustRun("calendar", "select"))

	h.env.SelectVisible = func(_ context.Context, calendars []schedule.Calendar) ([]string, error) {
		require.Len(t, calendars, 2)
		return []string{"cal-work"}, nil
	}
	assert.Equal(t, "Showing 1 of 2 calendar(s)\n", h.mustRun("calendar", "select"))

	var output waybar.Output
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("status")), &output))
	assert.Contains(t, output.Tooltip, "1 hidden calendar(s)")
}

func TestRun_RemindDryRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local))
	assert.Equal(t, "No reminders in the next 1d\n", h.mustRun("remind", "--dry-run"))

	h.mustRun("event", "add", "--date", "2024-03-05", "--time", "09:30", "--repeat", "daily", "--calendar", "cal-work", "Standup")
	out := h.mustRun("remind", "--dry-run")
	assert.Equal(t, "Tue 2024-03-05 09:15\tev-id-1-2024-03-05\tStandup — 09:30\n", out)
}

func TestRun_ExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	source := newHarness(t, morning())
	source.mustRun("event", "add", "--date", "2024-03-05", "--time", "09:30", "--repeat", "weekly", "--calendar", "cal-work", "Standup")
	source.mustRun("event", "add", "--date", "2024-03-08", "--time", "18:00", "--remind", "0", "Dinner")

	path := filepath.Join(source.dir, "export.ics")
	assert.Equal(t, fmt.Sprintf("Exported 2 event(s) to %s\n", path), source.mustRun("export", path))

	target := newHarness(t, morning())
	assert.Equal(t, "Imported 2 event(s), skipped 0\n", target.mustRun("import", path))
	assert.Equal(t, "Imported 2 event(s), skipped 0\n", target.mustRun("import", path))

	var view agendaView
	require.NoError(t, json.Unmarshal([]byte(target.mustRun("agenda", "--output", "json")), &view))
	texts := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		texts = append(texts, item.Date+" "+item.Text)
	}
	assert.Equal(t, []string{
		"2024-03-05 Standup",
		"2024-03-08 Dinner",
		"2024-03-12 Standup",
		"2024-03-19 Standup",
		"2024-03-26 Standup",
	}, texts)
}

func TestEventFlags_RemindHelpDescribesZero(t *testing.T) {
	t.Parallel()

	env := &Env{}
	for _, cmd := range []*cobra.Command{newEventAddCommand(env), newEventEditCommand(env)} {
		flag := cmd.Flags().Lookup("remind")
		require.NotNil(t, flag, cmd.Name())
		assert.Contains(t, flag.Usage, "0 fires at the start time")
	}
}

func TestRun_RejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, morning())
	_, err := h.run("join-next")
	assert.Error(t, err)
}

func TestWatchTargets(t *testing.T) {
	t.Parallel()

	env := &Env{Config: config.Runtime{Store: state.BackendSQLite, StateDir: "/s", DBPath: "/db/calendar.db"}}
	dir, files := watchTargets(env)
	assert.Equal(t, "/db", dir)
	assert.Equal(t, []string{"calendar.db", "calendar.db-wal"}, files)

	env.Config.Store = state.BackendJSON
	dir, files = watchTargets(env)
	assert.Equal(t, "/s", dir)
	assert.Equal(t, []string{state.EventsFile, state.CalendarsFile}, files)
}
