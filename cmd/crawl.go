package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
)

func newCrawlCmd() *cobra.Command {
	var (
		landID       int64
		limit        int
		depth        int
		httpStatus   string
		analyzeMedia bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl job for a land",
		Long: `Seeds the land's start URLs when its frontier is empty, then fetches and
processes candidate pages breadth-first until the limit is reached.`,
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

			params := land.JobParams{
				LandID:       landID,
				Limit:        limit,
				HTTPStatus:   httpStatus,
				AnalyzeMedia: analyzeMedia,
			}
			if cmd.Flags().Changed("depth") {
				params.Depth = &depth
			}

			jobID := uuid.NewString()
			result, err := a.Orchestrator.Crawl(ctx, jobID, params)
			if err != nil {
				return err
			}
			logger.Info("crawl finished",
				zap.String("job_id", jobID),
				zap.Int("processed", result.ProcessedCount),
				zap.Int("errors", result.ErrorCount),
				zap.Duration("dur", result.Duration),
			)
			return nil
		},
	}

	cmd.Flags().Int64Var(&landID, "land", 0, "land id to crawl")
	cmd.Flags().IntVar(&limit, "limit", 0, "max expressions to process (0 = land default)")
	cmd.Flags().IntVar(&depth, "depth", 0, "restrict the job to one depth")
	cmd.Flags().StringVar(&httpStatus, "http-status", "", "re-crawl expressions with this recorded status")
	cmd.Flags().BoolVar(&analyzeMedia, "analyze-media", false, "download and analyze harvested images")
	_ = cmd.MarkFlagRequired("land")
	return cmd
}
