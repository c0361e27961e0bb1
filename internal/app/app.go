// Package app assembles the service from configuration: stores, pipeline,
// progress sinks, queue, and the ops HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/api"
	"github.com/landgraph/landcrawler/internal/config"
	"github.com/landgraph/landcrawler/internal/extract"
	"github.com/landgraph/landcrawler/internal/fetch"
	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/linkgraph"
	"github.com/landgraph/landcrawler/internal/media"
	"github.com/landgraph/landcrawler/internal/pipeline"
	"github.com/landgraph/landcrawler/internal/progress"
	"github.com/landgraph/landcrawler/internal/progress/sinks"
	queuememory "github.com/landgraph/landcrawler/internal/queue/memory"
	queuepubsub "github.com/landgraph/landcrawler/internal/queue/pubsub"
	"github.com/landgraph/landcrawler/internal/relevance"
	"github.com/landgraph/landcrawler/internal/storage/blob"
	storagememory "github.com/landgraph/landcrawler/internal/storage/memory"
	"github.com/landgraph/landcrawler/internal/storage/postgres"
)

// stores bundles every storage port behind one struct so the memory and
// Postgres backends wire identically.
type stores struct {
	tx          land.Tx
	lands       land.LandStore
	expressions land.ExpressionStore
	domains     land.DomainStore
	links       land.LinkStore
	media       land.MediaStore
	jobs        land.JobStore
}

// App holds the assembled application.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Orchestrator *pipeline.Orchestrator
	Consolidator *pipeline.Consolidator
	Server       *api.Server
	Jobs         land.JobStore

	hub       *progress.Hub
	consumer  *queuepubsub.Consumer
	rendered  *media.RenderedSource
	db        *postgres.DB
	pubsubQ   *queuepubsub.Queue
	gcsClient *storage.Client
}

// New assembles the application from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	st, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	a.Jobs = st.jobs

	archive, err := a.buildArchive(ctx)
	if err != nil {
		return nil, err
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("build prometheus sink: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	fetcher := fetch.New(fetch.Config{
		UserAgent:       cfg.Fetch.UserAgent,
		Timeout:         cfg.FetchTimeout(),
		ArchiveTimeout:  cfg.ArchiveTimeout(),
		SnapshotTimeout: cfg.SnapshotTimeout(),
	}, logger.Named("fetch"))

	extractor := extract.New(logger.Named("extract"))
	scorer := relevance.New(relevance.Config{
		TitleWeight:    cfg.Relevance.TitleWeight,
		ContentWeight:  cfg.Relevance.ContentWeight,
		MultiTermBonus: cfg.Relevance.MultiTermBonus,
		LanguageBoost:  cfg.Relevance.LanguageBoost,
	}, logger.Named("relevance"))
	builder := linkgraph.New(st.expressions, st.domains, st.links,
		cfg.Crawl.AnchorMaxLen, logger.Named("linkgraph"))

	downloader := fetch.NewDownloader(cfg.Fetch.UserAgent,
		cfg.MediaDownloadTimeout(), cfg.MediaMaxBytes())
	analyzer := media.NewAnalyzer(downloader, cfg.Media.DominantColors,
		logger.Named("media"))
	var dynamic media.DynamicSource
	if cfg.Media.DynamicPass {
		a.rendered = media.NewRenderedSource(cfg.Fetch.UserAgent, 25*time.Second)
		dynamic = a.rendered
	}
	harvester := media.New(st.media, analyzer, dynamic, logger.Named("media"))

	processor := pipeline.NewProcessor(pipeline.ProcessorDeps{
		Tx:          st.tx,
		Expressions: st.expressions,
		Links:       st.links,
		Media:       st.media,
		Archive:     archive,
		Fetcher:     fetcher,
		Extractor:   extractor,
		Scorer:      scorer,
		Builder:     builder,
		Harvester:   harvester,
		Logger:      logger.Named("pipeline"),
	})

	queue, memQueue, err := a.buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	pipeCfg := pipeline.Config{
		Parallelism: int64(cfg.Crawl.Parallelism),
		BatchSize:   cfg.Crawl.BatchSize,
	}
	a.Orchestrator = pipeline.NewOrchestrator(pipeCfg, st.lands, st.expressions,
		st.jobs, processor, queue, a.hub, logger.Named("pipeline"))
	a.Consolidator = pipeline.NewConsolidator(pipeCfg, st.lands, st.expressions,
		st.jobs, processor, a.hub, logger.Named("pipeline"))

	if memQueue != nil {
		memQueue.SetRunner(a.Orchestrator)
	}
	if a.pubsubQ != nil {
		a.consumer = queuepubsub.NewConsumer(a.pubsubQ, a.Orchestrator, logger.Named("queue"))
	}

	a.Server = api.NewServer(a.Orchestrator, a.Consolidator, st.jobs, logger.Named("api"))
	return a, nil
}

func (a *App) buildStores(ctx context.Context) (stores, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("no database configured, using in-memory stores")
		mem := storagememory.New()
		return stores{
			tx:          mem,
			lands:       mem.Lands(),
			expressions: mem,
			domains:     mem.Domains(),
			links:       mem,
			media:       mem,
			jobs:        mem,
		}, nil
	}

	db, err := postgres.New(ctx, postgres.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return stores{}, fmt.Errorf("connect database: %w", err)
	}
	a.db = db
	return stores{
		tx:          db,
		lands:       postgres.NewLandStore(db),
		expressions: postgres.NewExpressionStore(db),
		domains:     postgres.NewDomainStore(db),
		links:       postgres.NewLinkStore(db),
		media:       postgres.NewMediaStore(db),
		jobs:        postgres.NewJobStore(db),
	}, nil
}

func (a *App) buildArchive(ctx context.Context) (land.ArchiveStore, error) {
	switch a.cfg.Blob.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.gcsClient = client
		return blob.NewGCSArchive(client, a.cfg.Blob.GCSBucket)
	case "local":
		return blob.NewLocalArchive(a.cfg.Blob.LocalDir)
	case "", "noop":
		return blob.NoopArchive{}, nil
	default:
		return nil, fmt.Errorf("unknown blob provider %q", a.cfg.Blob.Provider)
	}
}

// buildQueue wires Pub/Sub when a project is configured, and the in-process
// queue otherwise.
func (a *App) buildQueue(ctx context.Context) (land.BatchQueue, *queuememory.Queue, error) {
	if a.cfg.PubSub.ProjectID != "" {
		q, err := queuepubsub.New(ctx, queuepubsub.Config{
			ProjectID:          a.cfg.PubSub.ProjectID,
			BatchTopic:         a.cfg.PubSub.BatchTopic,
			ResultTopic:        a.cfg.PubSub.ResultTopic,
			BatchSubscription:  a.cfg.PubSub.BatchSubscription,
			ResultSubscription: a.cfg.PubSub.ResultSubscription,
		}, a.logger.Named("queue"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect pubsub: %w", err)
		}
		a.pubsubQ = q
		return q, nil, nil
	}
	mem := queuememory.New(a.logger.Named("queue"))
	return mem, mem, nil
}

// Run starts the ops server (and the batch consumer when Pub/Sub is wired)
// and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		go func() {
			a.logger.Info("batch consumer started")
			if err := a.consumer.Run(ctx); err != nil {
				a.logger.Error("batch consumer stopped", zap.Error(err))
				stop()
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close releases every held resource.
func (a *App) Close(ctx context.Context) error {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close", zap.Error(err))
		}
	}
	if a.rendered != nil {
		a.rendered.Close()
	}
	if a.pubsubQ != nil {
		if err := a.pubsubQ.Close(); err != nil {
			a.logger.Warn("pubsub close", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("storage client close", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Info("shutdown complete")
	return nil
}
