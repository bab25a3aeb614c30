package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/render"
)

func timelineCmd() *cobra.Command {
	var (
		verboseOutput bool
		since         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print recent plurks from your timeline",
		Long: `Print the plurks posted to your timeline recently.

Examples:
  # One line per plurk from the last day
  plurk timeline

  # Full content with permalinks for the last 6 hours
  plurk timeline --verbose-output --since 6h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return fmt.Errorf("--since must be positive, got %s", since)
			}

			keys, err := authorizedKeys(cmd)
			if err != nil {
				return err
			}

			tl, err := newAPIClient(keys).GetPlurks(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			logger.Debug("timeline fetched", zap.Int("plurks", len(tl.Plurks)))

			return render.NewPrinter(cmd.OutOrStdout()).Timeline(tl, verboseOutput)
		},
	}

	cmd.Flags().BoolVar(&verboseOutput, "verbose-output", false, "print permalinks and full content")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")

	return cmd
}
