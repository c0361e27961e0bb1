// Package memory implements the batch queue in process: dispatched batches
// run on goroutines through the same pipeline code a remote worker would use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
)

// Runner executes one dispatched batch. The orchestrator satisfies this.
type Runner interface {
	RunBatch(ctx context.Context, batch land.Batch) (land.JobResult, error)
}

// Queue runs batches in-process. The runner is attached after construction
// because the orchestrator and the queue reference each other.
type Queue struct {
	mu      sync.Mutex
	runner  Runner
	results map[string]chan land.JobResult
	logger  *zap.Logger
}

// New constructs a Queue.
func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		results: make(map[string]chan land.JobResult),
		logger:  logger,
	}
}

// SetRunner attaches the batch runner. Must be called before Dispatch.
func (q *Queue) SetRunner(r Runner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runner = r
}

// Dispatch implements land.BatchQueue: the batch runs on its own goroutine
// and reports into the job's result channel.
func (q *Queue) Dispatch(ctx context.Context, batch land.Batch) error {
	q.mu.Lock()
	runner := q.runner
	q.mu.Unlock()
	if runner == nil {
		return fmt.Errorf("memory queue has no runner attached")
	}

	ch := q.channel(batch.JobID)
	go func() {
		result, err := runner.RunBatch(ctx, batch)
		if err != nil {
			q.logger.Error("batch run failed",
				zap.String("job_id", batch.JobID), zap.Error(err))
			// a failed batch reports its whole extent as errors
			result.ErrorCount += len(batch.Expressions) - result.ProcessedCount - result.ErrorCount
		}
		ch <- result
	}()
	return nil
}

// Await implements land.BatchQueue.
func (q *Queue) Await(ctx context.Context, jobID string, batches int) ([]land.JobResult, error) {
	ch := q.channel(jobID)
	out := make([]land.JobResult, 0, batches)
	for len(out) < batches {
		select {
		case result := <-ch:
			out = append(out, result)
		case <-ctx.Done():
			return out, fmt.Errorf("await batches: %w", ctx.Err())
		}
	}
	q.release(jobID)
	return out, nil
}

func (q *Queue) channel(jobID string) chan land.JobResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.results[jobID]
	if !ok {
		ch = make(chan land.JobResult, 64)
		q.results[jobID] = ch
	}
	return ch
}

func (q *Queue) release(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.results, jobID)
}
