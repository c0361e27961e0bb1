package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
)

func newConsolidateCmd() *cobra.Command {
	var (
		landID int64
		limit  int
		depth  int
	)

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Re-derive relevance, links and media from stored content",
		Long: `Reprocesses the land's readable expressions without any network fetch:
scores are recomputed, and links and media are rebuilt from archived HTML
when available.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, logger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(ctx); cerr != nil {
					logger.Warn("close application", zap.Error(cerr))
				}
			}()

			params := land.JobParams{LandID: landID, Limit: limit}
			if cmd.Flags().Changed("depth") {
				params.Depth = &depth
			}

			jobID := uuid.NewString()
			result, err := a.Consolidator.Consolidate(ctx, jobID, params)
			if err != nil {
				return err
			}
			logger.Info("consolidation finished",
				zap.String("job_id", jobID),
				zap.Int("processed", result.ProcessedCount),
				zap.Int("errors", result.ErrorCount),
				zap.Duration("dur", result.Duration),
			)
			return nil
		},
	}

	cmd.Flags().Int64Var(&landID, "land", 0, "land id to consolidate")
	cmd.Flags().IntVar(&limit, "limit", 0, "max expressions to reprocess")
	cmd.Flags().IntVar(&depth, "depth", 0, "restrict the job to one depth")
	_ = cmd.MarkFlagRequired("land")
	return cmd
}
