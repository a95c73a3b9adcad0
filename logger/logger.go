// Package logger sets up zerolog: console writer, timestamped, debug
// level in development.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
)

// New returns a configured zerolog.Logger for the given stage name.
func New(cfg *config.Config, stage string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).With().Timestamp().Str("stage", stage).Logger()
}
