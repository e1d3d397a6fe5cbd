// Package logger holds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is usable before Setup is called; it writes info and above to stderr.
var Log = newLogger(os.Stderr, zerolog.InfoLevel, "")

// Setup replaces Log using a level name (debug, info, warn, error) and an
// output format ("json" for JSON lines, anything else for console output).
func Setup(level, format string) zerolog.Logger {
	Log = newLogger(os.Stderr, ParseLevel(level), format)
	return Log
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(w io.Writer, lvl zerolog.Level, format string) zerolog.Logger {
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
