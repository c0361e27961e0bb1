package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/progress"
)

// Consolidator re-derives relevance, links and media for already-fetched
// expressions from stored content, with no network access.
type Consolidator struct {
	cfg         Config
	lands       land.LandStore
	expressions land.ExpressionStore
	jobs        land.JobStore
	processor   *Processor
	emitter     progress.Emitter
	clock       land.Clock
	logger      *zap.Logger
}

// NewConsolidator constructs a Consolidator.
func NewConsolidator(
	cfg Config,
	lands land.LandStore,
	expressions land.ExpressionStore,
	jobs land.JobStore,
	processor *Processor,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Consolidator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		cfg:         cfg,
		lands:       lands,
		expressions: expressions,
		jobs:        jobs,
		processor:   processor,
		emitter:     emitter,
		clock:       processor.clock,
		logger:      logger,
	}
}

// Consolidate runs one consolidation job over the land's readable
// expressions. Per-item failures are absorbed into the result exactly like
// crawl processing.
func (c *Consolidator) Consolidate(ctx context.Context, jobID string, params land.JobParams) (land.JobResult, error) {
	start := c.clock.Now()
	if err := c.jobs.UpdateStatus(ctx, jobID, land.JobRunning, nil, ""); err != nil {
		return land.JobResult{}, fmt.Errorf("mark job running: %w", err)
	}

	ld, err := c.lands.Get(ctx, params.LandID)
	if err != nil {
		return c.fail(ctx, jobID, params.LandID, fmt.Errorf("resolve land %d: %w", params.LandID, err))
	}
	dict, err := c.lands.GetDictionary(ctx, params.LandID)
	if err != nil {
		return c.fail(ctx, jobID, params.LandID, fmt.Errorf("load dictionary: %w", err))
	}

	readable, err := c.expressions.ListReadable(ctx, params.LandID, params.Depth, params.Limit)
	if err != nil {
		return c.fail(ctx, jobID, params.LandID, fmt.Errorf("list readable: %w", err))
	}

	c.emitter.Emit(progress.Event{
		JobID:  jobUUID(jobID),
		TS:     c.clock.Now(),
		Stage:  progress.StageJobStart,
		LandID: ld.ID,
	})

	result := land.JobResult{HTTPStatusCount: make(map[string]int)}
	sem := semaphore.NewWeighted(c.cfg.Parallelism)

	for _, group := range groupByDepth(readable) {
		if err := ctx.Err(); err != nil {
			return result, c.failErr(ctx, jobID, ld.ID, fmt.Errorf("job cancelled: %w", err))
		}
		batchStart := c.clock.Now()
		var (
			mu        sync.Mutex
			wg        sync.WaitGroup
			processed int64
			errored   int64
			fatal     error
		)
		for _, expr := range group.items {
			wg.Add(1)
			go func(expr land.Expression) {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
				defer sem.Release(1)

				err := c.safeConsolidate(ctx, ld, dict, expr)
				mu.Lock()
				defer mu.Unlock()
				result.HTTPStatusCount[strconv.Itoa(expr.HTTPStatus)]++
				if err != nil {
					result.ErrorCount++
					errored++
					if land.IsFatal(err) && fatal == nil {
						fatal = err
					}
					c.logger.Warn("consolidation failed",
						zap.String("url", expr.URL), zap.Error(err))
					return
				}
				result.ProcessedCount++
				processed++
			}(expr)
		}
		wg.Wait()
		if fatal != nil {
			return result, c.failErr(ctx, jobID, ld.ID, fatal)
		}

		c.emitter.Emit(progress.Event{
			JobID:     jobUUID(jobID),
			TS:        c.clock.Now(),
			Stage:     progress.StageBatchDone,
			LandID:    ld.ID,
			Depth:     group.depth,
			Processed: processed,
			Errors:    errored,
			Dur:       c.clock.Now().Sub(batchStart),
		})
	}

	result.Duration = c.clock.Now().Sub(start)
	result.DurationSeconds = result.Duration.Seconds()
	if err := c.jobs.UpdateStatus(ctx, jobID, land.JobCompleted, &result, ""); err != nil {
		return result, fmt.Errorf("mark job completed: %w", err)
	}
	c.emitter.Emit(progress.Event{
		JobID:     jobUUID(jobID),
		TS:        c.clock.Now(),
		Stage:     progress.StageJobDone,
		LandID:    ld.ID,
		Processed: int64(result.ProcessedCount),
		Errors:    int64(result.ErrorCount),
		Dur:       result.Duration,
	})
	return result, nil
}

func (c *Consolidator) safeConsolidate(
	ctx context.Context,
	ld land.Land,
	dict land.Dictionary,
	expr land.Expression,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while consolidating %s: %v", expr.URL, r)
		}
	}()
	return c.processor.ConsolidateOne(ctx, ld, dict, expr)
}

func (c *Consolidator) fail(ctx context.Context, jobID string, landID int64, cause error) (land.JobResult, error) {
	return land.JobResult{}, c.failErr(ctx, jobID, landID, cause)
}

func (c *Consolidator) failErr(ctx context.Context, jobID string, landID int64, cause error) error {
	if err := c.jobs.UpdateStatus(ctx, jobID, land.JobFailed, nil, cause.Error()); err != nil {
		c.logger.Error("mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	c.emitter.Emit(progress.Event{
		JobID:  jobUUID(jobID),
		TS:     c.clock.Now(),
		Stage:  progress.StageJobError,
		LandID: landID,
		Note:   cause.Error(),
	})
	return cause
}
