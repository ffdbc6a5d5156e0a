// Package logger configures the process-wide slog logger from the log
// section of the application config, optionally chaining the parquet
// telemetry handler for error records.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/cartograph/pkg/config"
	"github.com/soundprediction/cartograph/pkg/telemetry"
)

// Setup builds a logger from the config and installs it as the slog
// default. When cfg.Telemetry.ParquetPath is set, error records are also
// written to parquet files under that directory.
func Setup(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			return nil, err
		}
		handler = parquetHandler
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
