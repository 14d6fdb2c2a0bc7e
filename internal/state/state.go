package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

const (
	EventsKey    = "calendar_events_v3"
	CalendarsKey = "calendar_calendars_v1"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var errKeyNotFound = errors.New("key not found")

// Store persists calendars and the date-keyed event mapping. Every Load
// returns a complete, independent snapshot.
type Store interface {
	LoadEvents(ctx context.Context) (schedule.EventBuckets, error)
	SaveEvents(ctx context.Context, events schedule.EventBuckets) error
	LoadCalendars(ctx context.Context) ([]schedule.Calendar, error)
	SaveCalendars(ctx context.Context, calendars []schedule.Calendar) error
	Close() error
}

// DefaultCalendars seeds a store that has never saved calendars.
func DefaultCalendars() []schedule.Calendar {
	return []schedule.Calendar{
		{ID: "cal-personal", Name: "Personal", Color: "#1e88ff", Visible: true},
		{ID: "cal-work", Name: "Work", Color: "#ff7043", Visible: true},
	}
}

type Options struct {
	Backend  string
	StateDir string
	DBPath   string
	Logger   zerolog.Logger
}

// Open returns the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendJSON:
		return OpenFiles(opts.StateDir, opts.Logger)
	case BackendSQLite:
		path := opts.DBPath
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(opts.StateDir, "calendar.db")
		}
		return OpenSQLite(ctx, path, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func writeFileAtomically(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
