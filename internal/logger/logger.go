// Package logger builds the process-wide slog.Logger. All three binaries
// log structured JSON to stdout; the level comes from configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pixel-money/wallet-core/internal/config"
)

// NewLogger creates the configured slog.Logger. Source locations are
// attached only at debug level.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	logger.Info("logger initialized", "level", level)

	return logger
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Critical logs at error level with a severity marker that operator
// tooling alerts on. Reserved for money-moved-but-bookkeeping-failed
// situations.
func Critical(logger *slog.Logger, msg string, args ...any) {
	args = append([]any{"severity", "critical"}, args...)
	logger.Error(msg, args...)
}
