package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New membuat logger zerolog. Di development output memakai ConsoleWriter,
// selain itu JSON ke stdout supaya mudah dikumpulkan.
func New(env, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter dipakai test untuk menangkap output.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", "bematende-backend").
		Logger()
}

// ParseLevel menerjemahkan "debug", "info", "warn", "error"; default info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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
