// Package progress defines the milestone events emitted while a crawl or
// consolidation job runs, and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents. Events are emitted at job
// and batch boundaries only, never per page.
type Stage string

const (
	StageJobStart  Stage = "JOB_START"
	StageBatchDone Stage = "BATCH_DONE"
	StageJobDone   Stage = "JOB_DONE"
	StageJobError  Stage = "JOB_ERROR"
)

// Event is one progress milestone. Batch events carry the per-batch deltas;
// job completion events carry the final totals.
type Event struct {
	JobID     uuid.UUID
	TS        time.Time
	Stage     Stage
	LandID    int64
	Depth     int
	Processed int64
	Errors    int64
	Dur       time.Duration
	Note      string
}

// Validate rejects events a sink could not attribute to a job.
func (e Event) Validate() error {
	if e.JobID == uuid.Nil {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageBatchDone, StageJobDone, StageJobError:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Processed < 0 || e.Errors < 0 {
		return errors.New("counts must be >= 0")
	}
	return nil
}
