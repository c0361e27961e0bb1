package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/landgraph/landcrawler/internal/land"
)

// JobStore tracks job lifecycle transitions and results.
type JobStore struct {
	db *DB
}

// NewJobStore constructs a JobStore.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// UpdateStatus implements land.JobStore. The row is upserted so the first
// transition also records the job.
func (s *JobStore) UpdateStatus(ctx context.Context, jobID string, status land.JobStatus, result *land.JobResult, errText string) error {
	var resultJSON any
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal job result: %w", err)
		}
		resultJSON = data
	}

	_, err := s.db.q(ctx).Exec(ctx, `
INSERT INTO jobs (id, status, result, error_text, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	result = EXCLUDED.result,
	error_text = EXCLUDED.error_text,
	updated_at = now()`,
		jobID, string(status), resultJSON, errText)
	if err != nil {
		return fmt.Errorf("upsert job status: %w", err)
	}
	return nil
}

// GetJob implements land.JobStore.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (land.Job, error) {
	var (
		job        land.Job
		resultJSON []byte
	)
	err := s.db.q(ctx).QueryRow(ctx, `
SELECT id, status, result, error_text, updated_at
FROM jobs
WHERE id = $1`, jobID).Scan(&job.ID, &job.Status, &resultJSON, &job.Error, &job.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return land.Job{}, fmt.Errorf("job %s: %w", jobID, land.ErrNotFound)
	}
	if err != nil {
		return land.Job{}, fmt.Errorf("select job: %w", err)
	}
	if len(resultJSON) > 0 {
		var result land.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return land.Job{}, fmt.Errorf("unmarshal job result: %w", err)
		}
		job.Result = &result
	}
	return job, nil
}
