package main

import (
	"github.com/ritzau/unitgen/pkg/output"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Write the unit file (default command)",
		Aliases: []string{"gen"},
		Args:    cobra.NoArgs,
		RunE:    runGenerate,
	}
	cmd.Flags().Bool("dry-run", false, "Print the units instead of writing them")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, ctx, err := setup(cmd)
	if err != nil {
		return err
	}

	res, err := pipeline.New(cfg.Pipeline("generate")).Run(ctx)
	if err != nil {
		return err
	}

	if res.DryRun {
		if _, err := cmd.OutOrStdout().Write(res.Text); err != nil {
			return err
		}
	}
	output.PrintRunReport(cmd.ErrOrStderr(), res)
	return nil
}
