package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/dictate/internal/app"
	"go.aimuz.me/dictate/internal/output"
	"go.aimuz.me/dictate/internal/types"
	"go.aimuz.me/dictate/internal/version"
	"go.aimuz.me/dictate/telemetry"
)

func NewRunCmd(deps *Dependencies) *cobra.Command {
	var (
		headless bool
		mode     string
		language string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tray app and listen for the hotkey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *deps.Config
			var overrides types.Settings
			if mode != "" {
				m, err := types.ParseMode(mode)
				if err != nil {
					return err
				}
				overrides.Mode = m
				cfg.Mode = m
			}
			if language != "" {
				overrides.Language = strings.ToLower(language)
				cfg.Language = overrides.Language
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics, err := telemetry.Setup(telemetry.Options{
				Version:  version.Version,
				Export:   cfg.Metrics.Export,
				Writer:   cmd.ErrOrStderr(),
				Interval: cfg.MetricsInterval(),
			}, slog.Default())
			if err != nil {
				return fmt.Errorf("setup telemetry: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metrics.Shutdown(sctx); err != nil {
					slog.Error("shutdown telemetry", "error", err)
				}
			}()

			svc := app.New(&cfg, version.Version)
			svc.SetRunOverrides(overrides)
			if !headless {
				return app.RunTray(ctx, svc)
			}

			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("start dictation: %w", err)
			}
			defer svc.Shutdown()

			output.NewFormatter(cmd.OutOrStdout()).Listening(cfg.Hotkey.Key, cfg.Mode, cfg.Language)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "run without the tray icon")
	cmd.Flags().StringVar(&mode, "mode", "", "dictation mode for this run: streaming or batch")
	cmd.Flags().StringVar(&language, "language", "", "spoken language code for this run, or auto")

	return cmd
}
