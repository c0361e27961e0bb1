// Package cmd defines the CLI commands of the landcrawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/app"
	"github.com/landgraph/landcrawler/internal/config"
	"github.com/landgraph/landcrawler/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "landcrawler",
		Short: "Topic-focused corpus crawler",
		Long: `landcrawler builds topic-focused text corpora: it crawls a land's seed
URLs breadth-first, extracts readable content, scores relevance against the
land's weighted dictionary, expands the link graph, and harvests embedded
media.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd(), newConsolidateCmd(), newServeCmd())
	return cmd
}

// Execute is the entry point used by main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildApp loads configuration and assembles the application.
func buildApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble application: %w", err)
	}
	return a, logger, nil
}
