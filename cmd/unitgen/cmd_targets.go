package main

import (
	"github.com/ritzau/unitgen/pkg/output"
	"github.com/ritzau/unitgen/pkg/tundra"
	"github.com/spf13/cobra"
)

func newTargetsCmd() *cobra.Command {
	var binary string

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the units tundra knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}

			targets, err := tundra.ListTargets(ctx, &tundra.DefaultExecutor{Binary: binary}, cfg.Workspace)
			if err != nil {
				return err
			}
			output.PrintTargets(cmd.OutOrStdout(), targets)
			return nil
		},
	}
	cmd.Flags().StringVar(&binary, "tundra", tundra.DefaultBinary, "Tundra executable")
	return cmd
}
