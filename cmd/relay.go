package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scienceol/powerwatch/internal/config"
	"github.com/scienceol/powerwatch/internal/power"
	"github.com/scienceol/powerwatch/internal/relay"
	"github.com/scienceol/powerwatch/internal/ui"
)

var (
	flagRelayURL    string
	flagRelayToken  string
	flagRelaySender string
	flagRelayReason string
)

func init() {
	relaySendCmd.Flags().StringVar(&flagRelayURL, "url", "", "Relay URL of the running monitor (default ws://127.0.0.1:7071/relay)")
	relaySendCmd.Flags().StringVar(&flagRelayToken, "token", "", "Relay token")
	relaySendCmd.Flags().StringVar(&flagRelaySender, "sender", "", "Sender name reported with the query (default: hostname)")
	relaySendCmd.Flags().StringVar(&flagRelayReason, "reason", "", "Free-form reason, e.g. logoff")
	relayCmd.AddCommand(relaySendCmd)
	rootCmd.AddCommand(relayCmd)
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Talk to a running monitor's relay endpoint",
}

var relaySendCmd = &cobra.Command{
	Use:   "send",
	Short: "Forward an end-session query to a running monitor",
	Long: `Forwards a "query end session" notification to the monitor. Queries arriving
within one second of an accepted one are dropped by the monitor, so several
windows forwarding the same notification yield one shutdown event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags config.Flags
		flags.RelayURL = flagRelayURL
		flags.RelayToken = flagRelayToken
		ctx, cfg, err := setup(cmd.Context(), flags)
		if err != nil {
			return err
		}

		sender := flagRelaySender
		if sender == "" {
			sender, _ = os.Hostname()
		}

		s := relay.NewSender(ctx, relay.SenderOptions{URL: cfg.RelayURL, Token: cfg.RelayToken})
		delivered, err := s.Send(ctx, relay.Query{Sender: sender, Reason: flagRelayReason})
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		if delivered {
			ui.Success("Shutdown query delivered")
		} else {
			ui.Warn("Shutdown query dropped (one was accepted less than %s ago)", power.RelayQuietPeriod)
		}
		return nil
	},
}
