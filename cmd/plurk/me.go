package main

import (
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/plurk-comet/internal/render"
)

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authorized user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := authorizedKeys(cmd)
			if err != nil {
				return err
			}

			user, err := newAPIClient(keys).Me(cmd.Context())
			if err != nil {
				return err
			}
			return render.NewPrinter(cmd.OutOrStdout()).Me(user)
		},
	}
}
