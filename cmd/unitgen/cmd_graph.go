package main

import (
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the package dependency graph in Graphviz DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}

			pg, err := pipeline.New(cfg.Pipeline("graph")).Graph(ctx)
			if err != nil {
				return err
			}

			dot, err := pg.MarshalDOT()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(dot, '\n'))
			return err
		},
	}
}
