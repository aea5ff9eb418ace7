package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/docrelay/internal/app"
	"github.com/vovakirdan/docrelay/internal/config"
	"github.com/vovakirdan/docrelay/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	defaults := config.Default()
	var configPath string

	cmd := &cobra.Command{
		Use:           "docrelay",
		Short:         "Realtime presence and edit relay for collaborative documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, configPath)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	flags.String("addr", defaults.Addr, "HTTP listen address")
	flags.Duration("read-header-timeout", defaults.ReadHeaderTimeout, "HTTP read header timeout")
	flags.Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown timeout")
	flags.Int64("max-message-bytes", defaults.MaxMessageBytes, "maximum inbound WebSocket frame size")
	flags.Int("client-buffer", defaults.ClientBuffer, "per-connection queue length")
	flags.Int("rate-limit", defaults.RateLimitPerMin, "inbound frames per connection per minute (0 disables)")
	flags.StringSlice("allowed-origin", nil, "allowed WebSocket origin pattern (repeatable)")
	flags.String("log-level", defaults.LogLevel, "log level (trace, debug, info, warn, error, disabled)")
	flags.String("log-format", defaults.LogFormat, "log format (console or json)")
	flags.String("journal", defaults.JournalPath, "SQLite activity journal path (empty disables)")

	return cmd
}

func run(cmd *cobra.Command, configPath string) error {
	bootLog := log.New("info", "console")

	cfg, path, err := config.Load(bootLog, configPath, cmd.Flags())
	if err != nil {
		bootLog.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("path", path).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize relay")
		return fmt.Errorf("init: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting docrelay")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("relay exited with error")
		return err
	}
	logger.Info().Msg("relay stopped")
	return nil
}
