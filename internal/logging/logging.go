// Package logging builds the zerolog loggers used by serve and sync.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"todosync/internal/config"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
}

// New returns a logger writing to w. The local env gets a console writer;
// the others get JSON. An empty level means info.
func New(env, level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	switch env {
	case config.EnvLocal:
		cw := zerolog.NewConsoleWriter()
		cw.TimeFormat = time.DateTime
		cw.Out = w
		w = cw
	case config.EnvDev, config.EnvProd:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", env)
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Logger(), nil
}

// ForCommand returns the logger of a one-shot CLI command: silent unless
// debug is set, in which case everything goes to w.
func ForCommand(cfg *config.Config, w io.Writer) zerolog.Logger {
	if !cfg.Debug {
		return zerolog.Nop()
	}
	env := cfg.Settings.Env
	if env == "" {
		env = config.EnvLocal
	}
	logger, err := New(env, zerolog.LevelDebugValue, w)
	if err != nil {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return logger
}
