// Package logging initializes structured logging, replacing the teacher's
// bare log.Printf call sites with zerolog loggers carrying a consistent
// "service" field, grounded in the logger setup style used across the
// rest of this codebase's lineage (rs/zerolog, JSON to stdout outside
// development and a console writer in development, RFC3339 timestamps,
// level via env).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for env (development gets console-friendly
// output; anything else gets JSON, which is what production log shippers
// expect).
func New(env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(level); err == nil {
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).With().Timestamp().Str("service", "seatcore").Logger()
}
