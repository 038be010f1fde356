package notifications

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/observability"
	"github.com/minds-hub/backend/pkg/queue"
)

// Processor drains the notification queue: dequeue, deliver, retry on error and mark the row
// failed once the job is dead-lettered.
type Processor struct {
	queue     *queue.Queue
	deliverer *Deliverer
	logger    *zap.Logger
	wait      time.Duration
	backoff   time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPollWait sets how long each dequeue blocks.
func WithPollWait(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.wait = d }
}

// WithRetryBackoff sets the pause after a failed job.
func WithRetryBackoff(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.backoff = d }
}

// NewProcessor creates a notification queue processor.
func NewProcessor(q *queue.Queue, deliverer *Deliverer, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		queue:     q,
		deliverer: deliverer,
		logger:    logger,
		wait:      5 * time.Second,
		backoff:   queue.RetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one job. Malformed jobs are dropped.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		p.logger.Warn("dropping job of unknown type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("dropping job with bad payload", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	return p.deliverer.Deliver(ctx, payload.NotificationID)
}

// Run starts the worker loop and returns when ctx is done.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		p.sampleDepth(ctx)
		job, err := p.queue.Dequeue(ctx, p.wait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			p.handleFailure(ctx, job, err)
			p.sleep(ctx)
		}
	}
}

func (p *Processor) handleFailure(ctx context.Context, job *queue.Job, cause error) {
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(cause))
	dead, err := p.queue.Retry(ctx, job, cause)
	if err != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if !dead {
		return
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err == nil {
		p.deliverer.Fail(ctx, payload.NotificationID, cause)
	}
}

func (p *Processor) sampleDepth(ctx context.Context) {
	for _, key := range []string{queue.QueueNotifications, queue.QueueDLQ} {
		if n, err := p.queue.Depth(ctx, key); err == nil {
			observability.SetQueueDepth(key, n)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
