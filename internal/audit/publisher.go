package audit

import (
	"context"
	"fmt"
	"time"
)

// Store is the outbox persistence port. Append must join the transaction on
// the context when one is present so the event becomes durable exactly when
// the business mutation does.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, entryIDs []string, publishedAt time.Time) error
}

// Publisher emits audit events with fail-closed semantics: if the outbox
// write fails the calling operation must fail too.
type Publisher struct {
	store Store
	now   func() time.Time
}

type PublisherOption func(*Publisher)

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires an action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}
