// Package logger provides process-wide structured logging for reqsync.
// Debug messages are only emitted when verbose mode is enabled via the
// --verbose flag; info, warning and error messages are always emitted.
//
// Output is human-readable when writing to a terminal and JSON lines
// otherwise, unless a format is forced with SetFormat.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Format selects the log encoding.
type Format string

const (
	// FormatAuto picks console output for terminals and JSON otherwise.
	FormatAuto Format = "auto"

	// FormatConsole forces human-readable output.
	FormatConsole Format = "console"

	// FormatJSON forces one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatAuto
	output  io.Writer = os.Stderr
	root              = build(FormatAuto, os.Stderr, false)
)

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	root = build(format, output, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	root = build(format, output, verbose)
}

// SetFormat sets the log encoding. Unknown values fall back to FormatAuto.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	switch f {
	case FormatConsole, FormatJSON:
		format = f
	default:
		format = FormatAuto
	}
	root = build(format, output, verbose)
}

// Get returns a copy of the root logger for callers that want to attach
// their own fields.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a logger tagged with a component name.
func Named(component string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", component).Logger()
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	l := Get()
	l.Debug().Msgf(format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	l := Get()
	l.Debug().Str("section", name).Msgf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	l := Get()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	l := Get()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message with the error attached.
func Error(err error, format string, args ...any) {
	l := Get()
	l.Error().Err(err).Msgf(format, args...)
}

func build(f Format, w io.Writer, debug bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if debug {
		lvl = zerolog.DebugLevel
	}

	tty := isTerminal(w)
	if f == FormatConsole || (f == FormatAuto && tty) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !tty}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
