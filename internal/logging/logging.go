// Package logging builds the zerolog logger shared by the CLI and the
// remediation engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string

	// Format is "console" or "json". Empty means console.
	Format string

	// Writer receives log output. Nil means os.Stdout.
	Writer io.Writer
}

// New returns a logger with a timestamp and the service name attached.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q; valid values: console, json", opts.Format)
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "dp-remediate").
		Logger(), nil
}

// isTerminal reports whether w is a terminal, including Cygwin/MSYS ptys.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
