// Package utils holds small cross-cutting helpers shared by cmd entrypoints:
// slog configuration and viper defaults.
package utils

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// ConfigureDefaultLogger installs a slog default logger at logLevel, writing
// to stdout (text handler) or, if logFile is set, to that file (JSON
// handler, created/truncated). Every line carries a "self" attribute set to
// selfID (when non-empty), so logs from every actor (each of which adds its
// own "component" attribute via .With) can still be told apart when multiple
// peers' output ends up interleaved in one file or terminal.
//
// Valid log levels are "none", "error", "warn", "info", "debug"; any other
// value returns an error. "none" discards all output and returns a nil
// file pointer.
//
// The returned *os.File is nil when logging to stdout, so callers should
// guard the close:
//
//	logFilePointer, err := utils.ConfigureDefaultLogger(level, file, selfID, slog.HandlerOptions{})
//	if logFilePointer != nil {
//		defer logFilePointer.Close()
//	}
func ConfigureDefaultLogger(logLevel string, logFile string, selfID string, loggerOptions slog.HandlerOptions) (*os.File, error) {
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		loggerOptions.Level = slog.LevelError
	case "warn":
		loggerOptions.Level = slog.LevelWarn
	case "info":
		loggerOptions.Level = slog.LevelInfo
	case "debug":
		loggerOptions.Level = slog.LevelDebug
	default:
		return nil, errors.New("unexpected log level")
	}

	if logFile == "" {
		slog.SetDefault(withSelf(slog.New(slog.NewTextHandler(os.Stdout, &loggerOptions)), selfID))
		return nil, nil
	}

	logFilePointer, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(withSelf(slog.New(slog.NewJSONHandler(logFilePointer, &loggerOptions)), selfID))
	return logFilePointer, nil
}

func withSelf(logger *slog.Logger, selfID string) *slog.Logger {
	if selfID == "" {
		return logger
	}
	return logger.With("self", selfID)
}
