package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/land"
)

type stubRunner struct {
	result land.JobResult
	err    error
}

func (r stubRunner) RunBatch(context.Context, land.Batch) (land.JobResult, error) {
	return r.result, r.err
}

// TestDispatchAndAwait verifies every dispatched batch reports exactly one
// result back to the awaiting job.
func TestDispatchAndAwait(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.SetRunner(stubRunner{result: land.JobResult{
		ProcessedCount:  2,
		HTTPStatusCount: map[string]int{"200": 2},
	}})

	ctx := context.Background()
	batch := land.Batch{JobID: "j1", LandID: 1, Expressions: []int64{1, 2}}
	require.NoError(t, q.Dispatch(ctx, batch))
	require.NoError(t, q.Dispatch(ctx, batch))

	results, err := q.Await(ctx, "j1", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 2, results[0].ProcessedCount)
}

// TestDispatchWithoutRunner asserts dispatching before wiring is an error
// instead of a hang.
func TestDispatchWithoutRunner(t *testing.T) {
	t.Parallel()

	q := New(nil)
	err := q.Dispatch(context.Background(), land.Batch{JobID: "j1"})
	require.Error(t, err)
}

// TestFailedBatchReportsExtentAsErrors verifies a batch whose run fails
// still reports, counting its unprocessed expressions as errors.
func TestFailedBatchReportsExtentAsErrors(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.SetRunner(stubRunner{err: errors.New("land gone")})

	ctx := context.Background()
	batch := land.Batch{JobID: "j2", LandID: 1, Expressions: []int64{1, 2, 3}}
	require.NoError(t, q.Dispatch(ctx, batch))

	results, err := q.Await(ctx, "j2", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 3, results[0].ErrorCount)
}

// TestAwaitHonorsContext asserts a cancelled wait returns promptly with the
// results gathered so far.
func TestAwaitHonorsContext(t *testing.T) {
	t.Parallel()

	q := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := q.Await(ctx, "j3", 1)
	require.Error(t, err)
	require.Empty(t, results)
}
