// Package logging builds the process logger from the [logging] config section.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options mirrors the [logging] config section.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
}

// New returns a logger writing to w. Console format is human readable;
// anything else is JSON lines.
func New(w io.Writer, opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(opts.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Stderr is New on os.Stderr, used by the daemon and CLI.
func Stderr(opts Options) zerolog.Logger {
	return New(os.Stderr, opts)
}

// Component tags every event with the emitting component.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
