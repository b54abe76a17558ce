package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.aimuz.me/dictate/config"
	"go.aimuz.me/dictate/internal/cli"
	"go.aimuz.me/dictate/internal/output"
	"go.aimuz.me/dictate/internal/version"
)

func main() {
	if err := run(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level.Set(parseLevel(cfg.LogLevel))

	slog.Debug("starting dictate", "version", version.Version, "commit", version.Commit, "date", version.Date)

	deps := &cli.Dependencies{
		Config:   cfg,
		LogLevel: &level,
	}
	return cli.NewRootCmd(deps).Execute()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
