package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scienceol/powerwatch/internal/config"
	"github.com/scienceol/powerwatch/internal/ui"
	"github.com/scienceol/powerwatch/internal/updater"
)

var version = "0.1.0"

var flagCheckUpdate bool

func init() {
	versionCmd.Flags().BoolVar(&flagCheckUpdate, "check", false, "Check whether a newer release exists")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of powerwatch",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("powerwatch v%s\n", version)
		if !flagCheckUpdate {
			return nil
		}

		ctx, cfg, err := setup(cmd.Context(), config.Flags{})
		if err != nil {
			return err
		}
		if cfg.UpdateURL == "" {
			ui.Warn("No update_url configured")
			return nil
		}
		if info := updater.CheckForUpdate(ctx, cfg.UpdateURL, version); info != nil {
			ui.UpdateNotice(version, info.Latest, info.DownloadURL)
			return nil
		}
		ui.Success("Up to date")
		return nil
	},
}
