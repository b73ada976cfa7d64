package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pos_backend/internal/config"
)

type Options struct {
	Environment config.Environment
	Level       string
	Output      io.Writer
}

// New builds the process logger and installs it as zerolog's global logger.
// Production gets JSON lines; everything else a console writer with caller info.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if opts.Environment.IsProduction() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		logger = zerolog.New(out).With().Timestamp().Logger()
		if opts.Level == "" {
			level = zerolog.InfoLevel
		}
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
			With().Timestamp().Caller().Logger()
	}

	logger = logger.Level(level)
	log.Logger = logger
	return logger
}

// Nop is used by tests and callers that do not care about output.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
