// Package logging configures the process-wide zerolog root logger.
// Components derive their own via log.With().Str("comp", ...).Logger().
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level   string // trace|debug|info|warn|error; default info
	Console bool   // human-readable console output instead of JSON
}

// New builds the root logger. Unknown or empty level strings fall back
// to info rather than failing: logging must come up even when the
// config is sloppy.
func New(cfg Config) zerolog.Logger {
	// Keep timestamps short and readable.
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"

	var out io.Writer = os.Stdout
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
	}
	return zerolog.New(out).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// Nop returns a logger that never writes anything.
func Nop() zerolog.Logger { return zerolog.Nop() }

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
