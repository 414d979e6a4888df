package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: debug level in dev, info otherwise.
func New(appEnv string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}
