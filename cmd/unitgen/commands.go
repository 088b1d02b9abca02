package main

import (
	"context"
	"os"

	"github.com/ritzau/unitgen/pkg/config"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "unitgen",
		Short: "Generate tundra units from a C/C++ package tree",
		Long: `unitgen scans one package per directory below the source root, infers
package dependencies from #include directives and writes Program and
StaticLibrary units with flattened dependency lists.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().Bool("dry-run", false, "Print the units instead of writing them")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newCheckCmd(),
		newGraphCmd(),
		newWatchCmd(),
		newTargetsCmd(),
	)
	return rootCmd
}

// setup loads the configuration, configures logging and tags the context
// with a fresh run ID
func setup(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logging.Configure(os.Stderr, level, cfg.LogJSON)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRunID(ctx, logging.NewRunID())
	logging.DebugContext(ctx, "configuration loaded", "workspace", cfg.Workspace, "root", cfg.Root)
	return cfg, ctx, nil
}
