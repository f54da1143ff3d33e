// Package journal fans committed ledger events out to the store and the
// message broker without blocking the serialized core.
package journal

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/messaging"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/store"
)

// Config holds the journal configuration
type Config struct {
	QueueSize    int
	WriteTimeout time.Duration
	MaxRetries   uint64
}

// Journal is the write-behind persistence and publishing pipeline. It
// implements the core's EventSink. Tasks run on a single worker so rows
// land in commit order; the pond pool provides the bounded queue and
// graceful drain.
type Journal struct {
	pool      pond.Pool
	store     store.Store
	publisher messaging.Publisher
	config    Config
}

// New creates a journal over the given store and optional publisher
func New(ctx context.Context, st store.Store, pub messaging.Publisher, cfg Config) *Journal {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 2048
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}

	return &Journal{
		pool: pond.NewPool(
			1,
			pond.WithQueueSize(cfg.QueueSize),
			pond.WithContext(ctx),
		),
		store:     st,
		publisher: pub,
		config:    cfg,
	}
}

// Record accepts one committed mutation. It never blocks the caller beyond
// queueing; persistence and publish failures are retried then logged, since
// the in-memory ledger remains the source of truth for the running process.
func (j *Journal) Record(event domain.LedgerEvent, delta domain.StateDelta) {
	j.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.config.WriteTimeout)
		defer cancel()

		if err := j.retry(ctx, func() error {
			return j.store.ApplyDelta(ctx, delta)
		}); err != nil {
			logger.Error(err, zap.String("event_id", event.ID), zap.String("stage", "apply_delta"))
		}

		if err := j.retry(ctx, func() error {
			return j.store.AppendEvent(ctx, event)
		}); err != nil {
			logger.Error(err, zap.String("event_id", event.ID), zap.String("stage", "append_event"))
		}

		if j.publisher != nil {
			if err := j.retry(ctx, func() error {
				return j.publisher.PublishEvent(ctx, &event)
			}); err != nil {
				logger.Error(err, zap.String("event_id", event.ID), zap.String("stage", "publish"))
			}
		}
	})
}

// PersistSnapshots writes stored-weight checkpoints through the same ordered
// pipeline
func (j *Journal) PersistSnapshots(snapshots []domain.CycleSnapshot) {
	if len(snapshots) == 0 {
		return
	}
	j.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.config.WriteTimeout)
		defer cancel()

		if err := j.retry(ctx, func() error {
			return j.store.AppendSnapshots(ctx, snapshots)
		}); err != nil {
			logger.Error(err, zap.Int("snapshots", len(snapshots)), zap.String("stage", "append_snapshots"))
		}
	})
}

// Close drains the queue and stops the worker
func (j *Journal) Close() {
	j.pool.StopAndWait()
}

func (j *Journal) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), j.config.MaxRetries),
		ctx,
	)
	return backoff.Retry(op, policy)
}
