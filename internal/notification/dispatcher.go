package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradegate/internal/platform/metrics"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks Transport

// Transport delivers one rendered email. Implementations must respect the
// context deadline; the dispatcher treats a timeout as a failed attempt.
type Transport interface {
	DeliverEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Store is the notification persistence port.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	ListQueued(ctx context.Context, limit int) ([]*Record, error)
	ListFailedRetryable(ctx context.Context, maxAttempts, limit int) ([]*Record, error)
}

// Dispatcher owns the queue-then-deliver contract. Enqueue runs inside the
// caller's transaction; Send and the worker run outside any transaction so a
// slow transport never holds database locks.
type Dispatcher struct {
	store       Store
	transport   Transport
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.sendTimeout = timeout }
}

func NewDispatcher(store Store, transport Transport, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("notification transport is required")
	}

	d := &Dispatcher{
		store:       store,
		transport:   transport,
		sendTimeout: 10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Enqueue renders the template and persists a queued record. When the context
// carries a transaction the write joins it, making the intent durable exactly
// when the business mutation is.
func (d *Dispatcher) Enqueue(ctx context.Context, recipient string, kind TemplateKind, data TemplateData, scope Scope) (*Record, error) {
	subject, body, err := Render(kind, data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render notification")
	}

	rec := &Record{
		ID:        id.NewNotificationID(),
		Recipient: recipient,
		Template:  kind,
		Subject:   subject,
		Body:      body,
		Scope:     scope,
		Status:    StatusQueued,
	}
	if err := d.store.Create(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to queue notification")
	}
	return rec, nil
}

// Send attempts delivery of one record exactly once and persists the outcome.
// The record is already durable as queued, so a crash mid-send stays
// observable. The returned error reports persistence failures only; the
// delivery outcome lives in rec.Status and rec.LastError.
func (d *Dispatcher) Send(ctx context.Context, rec *Record) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	rec.Attempts++
	deliverErr := d.transport.DeliverEmail(sendCtx, rec.Recipient, rec.Subject, rec.Body)
	if deliverErr != nil {
		rec.Status = StatusFailed
		rec.LastError = deliverErr.Error()
		if d.metrics != nil {
			d.metrics.NotificationsFailed.Inc()
		}
		d.logger.WarnContext(ctx, "notification delivery failed",
			"notification_id", rec.ID,
			"template", rec.Template,
			"attempts", rec.Attempts,
			"error", deliverErr,
		)
	} else {
		rec.Status = StatusSent
		rec.LastError = ""
		if d.metrics != nil {
			d.metrics.NotificationsSent.Inc()
		}
	}

	if err := d.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("persist notification outcome: %w", err)
	}
	return nil
}

// DrainQueued delivers pending records, oldest first. Returns how many were
// attempted; individual delivery failures do not abort the drain.
func (d *Dispatcher) DrainQueued(ctx context.Context, batchLimit int) (int, error) {
	records, err := d.store.ListQueued(ctx, batchLimit)
	if err != nil {
		return 0, fmt.Errorf("list queued notifications: %w", err)
	}

	for _, rec := range records {
		// Delivery errors are recorded on the row; only store errors abort.
		if err := d.Send(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

// RetryFailed re-attempts failed records that still have retry budget, oldest
// first. Records at the attempt ceiling stay failed permanently and are
// surfaced through metrics rather than retried forever.
func (d *Dispatcher) RetryFailed(ctx context.Context, maxAttempts, batchLimit int) (int, error) {
	records, err := d.store.ListFailedRetryable(ctx, maxAttempts, batchLimit)
	if err != nil {
		return 0, fmt.Errorf("list failed notifications: %w", err)
	}

	recovered := 0
	for _, rec := range records {
		if err := d.Send(ctx, rec); err != nil {
			return recovered, err
		}
		if rec.Status == StatusSent {
			recovered++
		} else if rec.Attempts >= maxAttempts && d.metrics != nil {
			d.metrics.NotificationsExhausted.Inc()
		}
	}
	return recovered, nil
}
