package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/progress"
)

func event(jobID uuid.UUID, stage progress.Stage) progress.Event {
	return progress.Event{
		JobID:  jobID,
		TS:     time.Now(),
		Stage:  stage,
		LandID: 1,
	}
}

// TestPrometheusSinkJobLifecycle walks a job from start to completion and
// checks the counters and the running gauge.
func TestPrometheusSinkJobLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	jobID := uuid.New()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event(jobID, progress.StageJobStart),
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.jobsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.jobsRunning))

	done := event(jobID, progress.StageJobDone)
	done.Dur = 3 * time.Second
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{done}))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.jobsRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.jobsCompleted.WithLabelValues("success")))
}

// TestPrometheusSinkDuplicateEventsKeepGaugeSane asserts repeated start or
// completion events for one job cannot skew the running gauge.
func TestPrometheusSinkDuplicateEventsKeepGaugeSane(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	jobID := uuid.New()
	batch := []progress.Event{
		event(jobID, progress.StageJobStart),
		event(jobID, progress.StageJobStart),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.jobsRunning))

	batch = []progress.Event{
		event(jobID, progress.StageJobError),
		event(jobID, progress.StageJobError),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.jobsRunning))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.jobsCompleted.WithLabelValues("error")))
}

// TestPrometheusSinkBatchCounters verifies per-depth page and error counts.
func TestPrometheusSinkBatchCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	evt := event(uuid.New(), progress.StageBatchDone)
	evt.Depth = 2
	evt.Processed = 40
	evt.Errors = 3
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt}))

	require.Equal(t, 40.0, testutil.ToFloat64(sink.batchPages.WithLabelValues("2")))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.batchErrors.WithLabelValues("2")))
}
