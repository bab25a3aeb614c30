package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/comet"
	"github.com/dgnsrekt/plurk-comet/internal/notify"
	"github.com/dgnsrekt/plurk-comet/internal/render"
)

func cometCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "comet",
		Short: "Stream new plurks, responses and notifications",
		Long: `Stream realtime events from your Plurk channel until interrupted.

Each new plurk, response and notification count update is printed as it
arrives. When notify.enabled is set, events are also forwarded to ntfy.

Examples:
  plurk comet

  # Only forward to ntfy
  PLURK_NOTIFY_ENABLED=true PLURK_NOTIFY_TOPIC=my-plurks plurk comet --quiet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			keys, err := authorizedKeys(cmd)
			if err != nil {
				return err
			}
			apiClient := newAPIClient(keys)

			var sinks comet.Sinks
			if !quiet {
				names := render.NewNames(apiClient, logger)
				sinks = append(sinks, render.NewTerminal(cmd.OutOrStdout(), names))
			}
			if cfg.Notify.Enabled {
				sinks = append(sinks, notify.New(&cfg.Notify, logger))
			}
			if len(sinks) == 0 {
				return fmt.Errorf("--quiet needs notify.enabled, otherwise nothing would receive events")
			}

			httpClient := newCometHTTPClient()
			client := comet.NewClient(
				apiClient,
				comet.NewPoller(httpClient, cfg.Comet.PollTimeout()),
				comet.NewKnocker(httpClient, cfg.Comet.KnockURL, cfg.Comet.KnockTimeout()),
				comet.LoopConfig{
					KnockEvery:    cfg.Comet.KnockEvery,
					RetryDelay:    cfg.Comet.RetryDelay(),
					RetryMaxDelay: cfg.Comet.RetryMaxDelay(),
					OnError: func(err error) {
						if !verbose {
							fmt.Fprintln(cmd.ErrOrStderr(), err)
						}
					},
				},
				logger,
			)

			fmt.Fprintln(cmd.ErrOrStderr(), "Polling Comet...ctrl+c to exit")
			if err := client.Stream(ctx, sinks); err != nil {
				return err
			}
			logger.Debug("comet stream finished", zap.Error(ctx.Err()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print events (use with notify)")

	return cmd
}
