package slog

import (
	"context"
	"log/slog"
	"os"
)

// Exit function, replaced in tests
var exitFn = os.Exit

// FatalError logs an error at the error level and terminates the application with exit code 1.
// If log is nil, slog.Default() is used.
func FatalError(log *slog.Logger, msg string, err error) {
	if log == nil {
		log = slog.Default()
	}

	log.LogAttrs(context.Background(), slog.LevelError, msg, slog.Any("error", err))
	exitFn(1)
}
