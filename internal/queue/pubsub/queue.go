// Package pubsub implements the batch queue on Google Cloud Pub/Sub: one
// topic carries dispatched sub-batches, a second carries their results.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
)

const jobIDAttribute = "job_id"

// Config names the Pub/Sub resources the queue uses.
type Config struct {
	ProjectID   string
	BatchTopic  string
	ResultTopic string
	// BatchSubscription is consumed by workers, ResultSubscription by the
	// dispatching orchestrator.
	BatchSubscription  string
	ResultSubscription string
}

// Queue dispatches batches and collects their results over Pub/Sub.
type Queue struct {
	client *pubsub.Client
	cfg    Config
	logger *zap.Logger
}

// New connects a Pub/Sub client for the queue.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Queue, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("pubsub project id is required")
	}
	if cfg.BatchTopic == "" || cfg.ResultTopic == "" {
		return nil, fmt.Errorf("pubsub batch and result topics are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Queue{client: client, cfg: cfg, logger: logger}, nil
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// Dispatch implements land.BatchQueue.
func (q *Queue) Dispatch(ctx context.Context, batch land.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	result := q.client.Topic(q.cfg.BatchTopic).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{jobIDAttribute: batch.JobID},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

// Await implements land.BatchQueue: it consumes the result subscription
// until every dispatched batch of the job has reported back. Results for
// other jobs are Nacked so their dispatcher can claim them.
func (q *Queue) Await(ctx context.Context, jobID string, batches int) ([]land.JobResult, error) {
	if batches == 0 {
		return nil, nil
	}
	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu  sync.Mutex
		out []land.JobResult
	)
	sub := q.client.Subscription(q.cfg.ResultSubscription)
	err := sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
		if msg.Attributes[jobIDAttribute] != jobID {
			msg.Nack()
			return
		}
		var result land.JobResult
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			q.logger.Warn("malformed batch result", zap.Error(err))
			msg.Ack()
			return
		}
		msg.Ack()

		mu.Lock()
		out = append(out, result)
		done := len(out) >= batches
		mu.Unlock()
		if done {
			cancel()
		}
	})
	if err != nil && ctx.Err() != nil {
		return out, fmt.Errorf("await batch results: %w", ctx.Err())
	}
	if err != nil {
		return out, fmt.Errorf("receive batch results: %w", err)
	}
	return out, nil
}

// Runner executes one dispatched batch. The orchestrator satisfies this.
type Runner interface {
	RunBatch(ctx context.Context, batch land.Batch) (land.JobResult, error)
}

// Consumer pulls dispatched batches, runs them, and publishes results. One
// Consumer runs per worker process.
type Consumer struct {
	queue  *Queue
	runner Runner
	logger *zap.Logger
}

// NewConsumer constructs a Consumer on an existing Queue connection.
func NewConsumer(queue *Queue, runner Runner, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{queue: queue, runner: runner, logger: logger}
}

// Run blocks consuming the batch subscription until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	sub := c.queue.client.Subscription(c.queue.cfg.BatchSubscription)
	err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var batch land.Batch
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			c.logger.Warn("malformed batch message", zap.Error(err))
			msg.Ack()
			return
		}

		result, err := c.runner.RunBatch(ctx, batch)
		if err != nil {
			c.logger.Error("batch run failed",
				zap.String("job_id", batch.JobID), zap.Error(err))
			msg.Nack()
			return
		}
		if err := c.publishResult(ctx, batch.JobID, result); err != nil {
			c.logger.Error("publish batch result failed",
				zap.String("job_id", batch.JobID), zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive batches: %w", err)
	}
	return nil
}

func (c *Consumer) publishResult(ctx context.Context, jobID string, result land.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal batch result: %w", err)
	}
	pub := c.queue.client.Topic(c.queue.cfg.ResultTopic).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{jobIDAttribute: jobID},
	})
	if _, err := pub.Get(ctx); err != nil {
		return fmt.Errorf("publish batch result: %w", err)
	}
	return nil
}
