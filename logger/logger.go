// Package logger configures the process-wide slog logger
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init installs the default slog logger described by cfg and returns it.
// The returned closer flushes the rotating file, if any.
func Init(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = rotating
		out = rotating
		if cfg.Output == "both" {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, closer
}

// ParseLevel maps a config level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch level {
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

// WithContext returns the default logger enriched with request scoped values
func WithContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if ctx == nil {
		return l
	}
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
		l = l.With("request_id", requestID)
	}
	if accountID, ok := ctx.Value(utils.AccountIDKey).(string); ok && accountID != "" {
		l = l.With("account_id", accountID)
	}
	if endpoint, ok := ctx.Value(utils.EndpointKey).(string); ok && endpoint != "" {
		l = l.With("endpoint", endpoint)
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
