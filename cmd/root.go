package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scienceol/powerwatch/internal/config"
	"github.com/scienceol/powerwatch/internal/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: console or json")
}

var rootCmd = &cobra.Command{
	Use:   "powerwatch",
	Short: "powerwatch: host power events for desktop applications",
	Long: `powerwatch turns host power notifications (suspend, resume, shutdown,
lock/unlock, AC/battery) into an application event stream.

The platform subscription is made lazily, once the host is ready and a
listener exists. On Linux, shutdown listeners hold a logind delay lock; on
Windows, end-session queries are relayed to the monitor over a local
WebSocket and collapsed into a single shutdown event.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves configuration and attaches the logger to ctx.
func setup(ctx context.Context, flags config.Flags) (context.Context, *config.Config, error) {
	flags.LogLevel = flagLogLevel
	flags.LogFormat = flagLogFormat

	cfg, err := config.Load(flags)
	if err != nil {
		return ctx, nil, fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return ctx, nil, fmt.Errorf("logger: %w", err)
	}
	return logging.WithContext(ctx, logger), cfg, nil
}
