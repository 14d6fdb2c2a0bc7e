// Package logging builds the zerolog logger shared by every command.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with service. Output goes to stderr unless w is
// set, since stdout carries Waybar JSON. Unknown levels fall back to info.
func New(w io.Writer, service, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(parsed).With().
		Str("service", service).
		Timestamp().
		Logger()
}

// Console is New with the human-readable writer used for interactive runs.
func Console(w io.Writer, service, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05", NoColor: true}, service, level)
}
