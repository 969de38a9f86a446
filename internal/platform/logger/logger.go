package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services and workers take
// it as a dependency instead of reaching for the default logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
