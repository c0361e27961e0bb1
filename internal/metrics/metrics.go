// Package metrics exposes Prometheus counters for the crawl pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalFetches tracks the number of direct page fetches attempted.
	TotalFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_fetches_total",
		Help: "The total number of direct HTTP page fetches attempted.",
	})
	// TotalArchiveFallbacks tracks fetches that fell back to the archive.
	TotalArchiveFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_archive_fallbacks_total",
		Help: "The total number of fetches resolved through the archival fallback.",
	})
	// TotalFetchErrors tracks fetches that failed on both strategies.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_fetch_errors_total",
		Help: "The total number of fetches that failed both directly and via archive.",
	})
	// TotalExpressionsProcessed tracks items fully processed by a job.
	TotalExpressionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_expressions_processed_total",
		Help: "The total number of expressions processed across all jobs.",
	})
	// TotalExpressionErrors tracks items whose processing failed and rolled back.
	TotalExpressionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_expression_errors_total",
		Help: "The total number of expressions that failed processing.",
	})
	// TotalLinksCreated tracks link edges persisted by discovery.
	TotalLinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_links_created_total",
		Help: "The total number of link edges created.",
	})
	// TotalMediaHarvested tracks media records persisted.
	TotalMediaHarvested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_media_harvested_total",
		Help: "The total number of media records created.",
	})
	// TotalMediaAnalysisErrors tracks non-fatal image analysis failures.
	TotalMediaAnalysisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landcrawler_media_analysis_errors_total",
		Help: "The total number of media records with an analysis error.",
	})
)
