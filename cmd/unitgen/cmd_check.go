package main

import (
	"github.com/ritzau/unitgen/pkg/graph"
	"github.com/ritzau/unitgen/pkg/output"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the dependency graph without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}

			a, err := pipeline.New(cfg.Pipeline("check")).Check(ctx)
			if a != nil {
				// List every cycle, not only the first one validation stops at
				cycles := graph.Build(a.Tree, a.Table).Cycles()
				output.PrintCheckReport(cmd.OutOrStdout(), a, cycles)
			}
			return err
		},
	}
}
