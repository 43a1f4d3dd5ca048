package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scienceol/powerwatch/internal/config"
	"github.com/scienceol/powerwatch/internal/platform"
	"github.com/scienceol/powerwatch/internal/power"
)

var flagIdleThreshold time.Duration

func init() {
	idleCmd.Flags().DurationVar(&flagIdleThreshold, "threshold", 0, "Idle threshold (default from config, 60s)")
	rootCmd.AddCommand(idleCmd)
}

var idleCmd = &cobra.Command{
	Use:   "idle",
	Short: "Print the current idle state and idle time",
	Long: `Queries the host once for its idle state against a threshold and for the
time since the last user input. No power subscription is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags config.Flags
		flags.IdleThreshold = flagIdleThreshold
		ctx, cfg, err := setup(cmd.Context(), flags)
		if err != nil {
			return err
		}

		m := power.New(ctx, power.Options{Idle: platform.NewIdleQuerier(ctx)})
		defer m.Close()

		state, err := m.SystemIdleState(cfg.IdleThreshold)
		if err != nil {
			return fmt.Errorf("idle state: %w", err)
		}
		idle, err := m.SystemIdleTime()
		if err != nil {
			return fmt.Errorf("idle time: %w", err)
		}

		fmt.Printf("state: %s\nidle:  %s\n", state, idle.Truncate(time.Second))
		return nil
	},
}
