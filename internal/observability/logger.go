package observability

import (
	"log/slog"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-data-etl/internal/config"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// NewLoggerFromEnv builds the same logger for the standalone tools, which
// read only LOG_LEVEL and LOG_FORMAT instead of the full service config.
func NewLoggerFromEnv() *slog.Logger {
	return sharedobs.NewLogger(
		sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	)
}
