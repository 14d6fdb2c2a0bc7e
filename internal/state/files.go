package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	EventsFile    = "events.json"
	CalendarsFile = "calendars.json"
)

var fileNames = map[string]string{
	EventsKey:    EventsFile,
	CalendarsKey: CalendarsFile,
}

type fileBackend struct {
	dir string
}

// OpenFiles stores each key as a JSON file under dir.
func OpenFiles(dir string, logger zerolog.Logger) (*KV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("state dir is required")
	}
	if err := EnsureDirs(dir); err != nil {
		return nil, err
	}
	return &KV{backend: &fileBackend{dir: dir}, logger: logger, indent: true}, nil
}

func (b *fileBackend) path(key string) string {
	name, ok := fileNames[key]
	if !ok {
		name = key + ".json"
	}
	return filepath.Join(b.dir, name)
}

func (b *fileBackend) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errKeyNotFound
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(b.path(key)), err)
	}
	return raw, nil
}

func (b *fileBackend) put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomically(b.path(key), value)
}

func (b *fileBackend) close() error { return nil }
