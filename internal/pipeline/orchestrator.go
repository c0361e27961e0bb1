package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/linkgraph"
	"github.com/landgraph/landcrawler/internal/progress"
)

// Config bounds the orchestrator's concurrency and batching.
type Config struct {
	// Parallelism is the number of items processed concurrently within a
	// depth group (default 4).
	Parallelism int64
	// BatchSize splits candidate sets larger than this into dispatched
	// sub-batches when a queue is wired (0 disables dispatch).
	BatchSize int
}

// Orchestrator drives a crawl job end to end: PENDING -> RUNNING ->
// {COMPLETED | FAILED}, breadth-first across depth groups.
type Orchestrator struct {
	cfg         Config
	lands       land.LandStore
	expressions land.ExpressionStore
	jobs        land.JobStore
	processor   *Processor
	queue       land.BatchQueue
	emitter     progress.Emitter
	clock       land.Clock
	logger      *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. queue may be nil; every job
// then runs in-process regardless of size.
func NewOrchestrator(
	cfg Config,
	lands land.LandStore,
	expressions land.ExpressionStore,
	jobs land.JobStore,
	processor *Processor,
	queue land.BatchQueue,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		lands:       lands,
		expressions: expressions,
		jobs:        jobs,
		processor:   processor,
		queue:       queue,
		emitter:     emitter,
		clock:       processor.clock,
		logger:      logger,
	}
}

// Crawl runs one crawl job. Per-item failures are absorbed into the result;
// the returned error reflects job-level failures only (unresolvable land,
// storage outage, cancellation).
func (o *Orchestrator) Crawl(ctx context.Context, jobID string, params land.JobParams) (land.JobResult, error) {
	start := o.clock.Now()
	if err := o.jobs.UpdateStatus(ctx, jobID, land.JobRunning, nil, ""); err != nil {
		return land.JobResult{}, fmt.Errorf("mark job running: %w", err)
	}

	ld, err := o.lands.Get(ctx, params.LandID)
	if err != nil {
		return o.fail(ctx, jobID, params.LandID, fmt.Errorf("resolve land %d: %w", params.LandID, err))
	}
	dict, err := o.lands.GetDictionary(ctx, params.LandID)
	if err != nil {
		return o.fail(ctx, jobID, params.LandID, fmt.Errorf("load dictionary: %w", err))
	}

	if err := o.seedIfEmpty(ctx, ld); err != nil {
		return o.fail(ctx, jobID, params.LandID, err)
	}

	limit := params.Limit
	if ld.MaxItems > 0 && (limit <= 0 || limit > ld.MaxItems) {
		limit = ld.MaxItems
	}
	candidates, err := o.expressions.ListCandidates(ctx, land.CandidateFilter{
		LandID:     params.LandID,
		Depth:      params.Depth,
		HTTPStatus: params.HTTPStatus,
		Limit:      limit,
	})
	if err != nil {
		return o.fail(ctx, jobID, params.LandID, fmt.Errorf("list candidates: %w", err))
	}

	o.emitter.Emit(progress.Event{
		JobID:  jobUUID(jobID),
		TS:     o.clock.Now(),
		Stage:  progress.StageJobStart,
		LandID: ld.ID,
	})

	var result land.JobResult
	if o.queue != nil && o.cfg.BatchSize > 0 && len(candidates) > o.cfg.BatchSize {
		result, err = o.dispatchBatches(ctx, jobID, candidates, params.AnalyzeMedia)
	} else {
		result, err = o.processGroups(ctx, jobID, ld, dict, candidates, params.AnalyzeMedia)
	}
	if err != nil {
		return o.fail(ctx, jobID, params.LandID, err)
	}

	result.Duration = o.clock.Now().Sub(start)
	result.DurationSeconds = result.Duration.Seconds()
	if err := o.jobs.UpdateStatus(ctx, jobID, land.JobCompleted, &result, ""); err != nil {
		return result, fmt.Errorf("mark job completed: %w", err)
	}
	o.emitter.Emit(progress.Event{
		JobID:     jobUUID(jobID),
		TS:        o.clock.Now(),
		Stage:     progress.StageJobDone,
		LandID:    ld.ID,
		Processed: int64(result.ProcessedCount),
		Errors:    int64(result.ErrorCount),
		Dur:       result.Duration,
	})
	return result, nil
}

// RunBatch processes one dispatched sub-batch in the current process. The
// queue consumer calls this for remote batches; the memory queue calls it
// inline.
func (o *Orchestrator) RunBatch(ctx context.Context, batch land.Batch) (land.JobResult, error) {
	ld, err := o.lands.Get(ctx, batch.LandID)
	if err != nil {
		return land.JobResult{}, fmt.Errorf("resolve land %d: %w", batch.LandID, err)
	}
	dict, err := o.lands.GetDictionary(ctx, batch.LandID)
	if err != nil {
		return land.JobResult{}, fmt.Errorf("load dictionary: %w", err)
	}

	exprs := make([]land.Expression, 0, len(batch.Expressions))
	for _, id := range batch.Expressions {
		expr, err := o.expressions.Get(ctx, id)
		if err != nil {
			o.logger.Warn("batch expression missing", zap.Int64("id", id), zap.Error(err))
			continue
		}
		exprs = append(exprs, expr)
	}
	return o.processGroups(ctx, batch.JobID, ld, dict, exprs, batch.AnalyzeMedia)
}

// seedIfEmpty creates depth-0 expressions from the land's start URLs when no
// frontier exists yet. Seeds are attached to their host's domain.
func (o *Orchestrator) seedIfEmpty(ctx context.Context, ld land.Land) error {
	count, err := o.expressions.CountByLand(ctx, ld.ID)
	if err != nil {
		return fmt.Errorf("count expressions: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, raw := range ld.StartURLs {
		normalized, err := linkgraph.Normalize(raw)
		if err != nil || !linkgraph.IsCrawlable(normalized) {
			o.logger.Warn("skipping invalid start url", zap.String("url", raw))
			continue
		}
		if _, _, err := o.processor.builder.Seed(ctx, ld.ID, normalized); err != nil {
			return fmt.Errorf("seed %s: %w", normalized, err)
		}
	}
	return nil
}

// processGroups walks the candidates depth group by depth group so children
// discovered at d+1 never run before depth d finishes. Cancellation is
// checked between groups, not mid-item.
func (o *Orchestrator) processGroups(
	ctx context.Context,
	jobID string,
	ld land.Land,
	dict land.Dictionary,
	candidates []land.Expression,
	analyzeMedia bool,
) (land.JobResult, error) {
	result := land.JobResult{HTTPStatusCount: make(map[string]int)}
	sem := semaphore.NewWeighted(o.cfg.Parallelism)

	for _, group := range groupByDepth(candidates) {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("job cancelled: %w", err)
		}
		batchStart := o.clock.Now()
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

				bucket, err := o.safeProcess(ctx, ld, dict, expr, analyzeMedia)
				mu.Lock()
				defer mu.Unlock()
				result.HTTPStatusCount[bucket]++
				if err != nil {
					result.ErrorCount++
					errored++
					if land.IsFatal(err) && fatal == nil {
						fatal = err
					}
					o.logger.Warn("expression failed",
						zap.String("url", expr.URL),
						zap.Int("depth", expr.Depth),
						zap.Error(err))
					return
				}
				result.ProcessedCount++
				processed++
			}(expr)
		}
		wg.Wait()
		if fatal != nil {
			return result, fatal
		}

		o.emitter.Emit(progress.Event{
			JobID:     jobUUID(jobID),
			TS:        o.clock.Now(),
			Stage:     progress.StageBatchDone,
			LandID:    ld.ID,
			Depth:     group.depth,
			Processed: processed,
			Errors:    errored,
			Dur:       o.clock.Now().Sub(batchStart),
		})
	}
	return result, nil
}

// safeProcess isolates one item: a panic anywhere in its processing counts
// as that item's error and nothing more.
func (o *Orchestrator) safeProcess(
	ctx context.Context,
	ld land.Land,
	dict land.Dictionary,
	expr land.Expression,
	analyzeMedia bool,
) (bucket string, err error) {
	defer func() {
		if r := recover(); r != nil {
			bucket = land.ErrorBucket
			err = fmt.Errorf("panic while processing %s: %v", expr.URL, r)
		}
	}()
	return o.processor.CrawlOne(ctx, ld, dict, expr, analyzeMedia)
}

// dispatchBatches splits the candidates into sub-batches, hands them to the
// queue, then blocks until every batch reports back and merges the results.
func (o *Orchestrator) dispatchBatches(
	ctx context.Context,
	jobID string,
	candidates []land.Expression,
	analyzeMedia bool,
) (land.JobResult, error) {
	result := land.JobResult{HTTPStatusCount: make(map[string]int)}

	batches := 0
	for offset := 0; offset < len(candidates); offset += o.cfg.BatchSize {
		end := offset + o.cfg.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		ids := make([]int64, 0, end-offset)
		for _, expr := range candidates[offset:end] {
			ids = append(ids, expr.ID)
		}
		batch := land.Batch{
			JobID:        jobID,
			LandID:       candidates[0].LandID,
			Expressions:  ids,
			AnalyzeMedia: analyzeMedia,
		}
		if err := o.queue.Dispatch(ctx, batch); err != nil {
			return result, fmt.Errorf("dispatch batch %d: %w", batches, err)
		}
		batches++
	}

	partials, err := o.queue.Await(ctx, jobID, batches)
	if err != nil {
		return result, fmt.Errorf("await %d batches: %w", batches, err)
	}
	for _, partial := range partials {
		result.Merge(partial)
	}
	return result, nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, landID int64, cause error) (land.JobResult, error) {
	if err := o.jobs.UpdateStatus(ctx, jobID, land.JobFailed, nil, cause.Error()); err != nil {
		o.logger.Error("mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	o.emitter.Emit(progress.Event{
		JobID:  jobUUID(jobID),
		TS:     o.clock.Now(),
		Stage:  progress.StageJobError,
		LandID: landID,
		Note:   cause.Error(),
	})
	return land.JobResult{}, cause
}

type depthGroup struct {
	depth int
	items []land.Expression
}

// groupByDepth splits candidates into consecutive same-depth runs. The
// candidate query orders by depth then id, so one pass suffices.
func groupByDepth(candidates []land.Expression) []depthGroup {
	var groups []depthGroup
	for _, expr := range candidates {
		if n := len(groups); n == 0 || groups[n-1].depth != expr.Depth {
			groups = append(groups, depthGroup{depth: expr.Depth})
		}
		last := &groups[len(groups)-1]
		last.items = append(last.items, expr)
	}
	return groups
}

// jobUUID derives a stable UUID for progress events from the job's string
// identifier.
func jobUUID(jobID string) uuid.UUID {
	if id, err := uuid.Parse(jobID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(jobID))
}
