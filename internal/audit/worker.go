package audit

import (
	"context"
	"log/slog"
	"time"

	"tradegate/internal/platform/kafka"
)

// Sink receives relayed outbox batches. Satisfied by the kafka producer.
type Sink interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

const (
	defaultTopic      = "tradegate.audit.events"
	defaultBatchLimit = 100
)

// Worker relays unpublished outbox entries to the sink on a fixed interval.
// Relay is at-least-once: a crash between Publish and MarkPublished replays
// the batch, and consumers dedupe on the event id inside the payload.
type Worker struct {
	store      Store
	sink       Sink
	interval   time.Duration
	topic      string
	batchLimit int
	logger     *slog.Logger
}

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func WithTopic(topic string) WorkerOption {
	return func(w *Worker) { w.topic = topic }
}

func NewWorker(store Store, sink Sink, interval time.Duration, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:      store,
		sink:       sink,
		interval:   interval,
		topic:      defaultTopic,
		batchLimit: defaultBatchLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RelayOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit relay tick failed", "error", err)
			}
		}
	}
}

// RelayOnce drains one batch; Run calls it on every tick.
func (w *Worker) RelayOnce(ctx context.Context) error {
	entries, err := w.store.ListUnpublished(ctx, w.batchLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(entries))
	entryIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		msgs = append(msgs, kafka.Message{
			Topic: w.topic,
			Key:   []byte(entry.Key),
			Value: entry.Payload,
		})
		entryIDs = append(entryIDs, entry.ID.String())
	}

	if err := w.sink.Publish(ctx, msgs); err != nil {
		return err
	}
	return w.store.MarkPublished(ctx, entryIDs, time.Now())
}
