package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kasirpos/pos/internal/jobs"
)

// KeyPurger deletes idempotency claims older than a cutoff.
type KeyPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdempotencyPurgeJob trims idempotency_keys so the table only covers the
// window in which clients realistically retry.
type IdempotencyPurgeJob struct {
	Store     KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Now       func() time.Time
}

// Handle processes TaskIdempotencyPurge tasks.
func (j *IdempotencyPurgeJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency purge: handler not configured")
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskIdempotencyPurge)
	defer func() { err = tracker.End(err) }()

	retention := j.Retention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := now().UTC().Add(-retention)
	removed, err := j.Store.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	loggerOrDefault(j.Logger, TaskIdempotencyPurge).Info("idempotency keys purged",
		slog.Int64("removed", removed),
		slog.Time("cutoff", cutoff),
	)
	return nil
}
