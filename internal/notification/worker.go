package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBatchLimit  = 10
)

// Worker drains the outbox on an interval: queued records first, then failed
// records with remaining retry budget. It keeps delivery entirely outside the
// business transactions that queue messages.
type Worker struct {
	dispatcher  *Dispatcher
	interval    time.Duration
	maxAttempts int
	batchLimit  int
	logger      *slog.Logger
}

func NewWorker(dispatcher *Dispatcher, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		dispatcher:  dispatcher,
		interval:    interval,
		maxAttempts: defaultMaxAttempts,
		batchLimit:  defaultBatchLimit,
		logger:      logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.dispatcher.DrainQueued(ctx, w.batchLimit); err != nil {
		w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
	}
	if _, err := w.dispatcher.RetryFailed(ctx, w.maxAttempts, w.batchLimit); err != nil {
		w.logger.ErrorContext(ctx, "notification retry pass failed", "error", err)
	}
}
