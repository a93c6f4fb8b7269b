package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "flex-reviews"

// NewLogger returns the process logger. APP_ENV=dev (or development) gets a
// human-friendly console writer; everything else logs JSON to stdout.
func NewLogger(env string) zerolog.Logger {
	var out io.Writer = os.Stdout
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// SetLevel applies LOG_LEVEL globally; unknown values keep info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
