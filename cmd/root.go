// Package cmd defines the CLI commands for the leadhunter executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadhunter-enricher/internal/config"
	"github.com/JakeFAU/leadhunter-enricher/internal/logging"
)

type rootOptions struct {
	configPath string
}

// load reads configuration and builds the process logger.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config failed: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger init failed: %w", err)
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "leadhunter",
		Short: "Enriches business leads with a contact email and social profiles.",
		Long: `leadhunter fetches a business website and extracts a contact email and
links to the business's social media profiles. It runs as an HTTP service that
enriches saved leads and whole lead lists, charging credits per success.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (env vars use the LEADHUNTER_ prefix)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEnrichCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
