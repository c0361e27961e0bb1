package cmd

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server and batch consumer",
		Long: `Starts the HTTP interface (job submission, health probes, Prometheus
metrics) and, when Pub/Sub is configured, the sub-batch consumer. Blocks
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, err := buildApp(ctx)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}
