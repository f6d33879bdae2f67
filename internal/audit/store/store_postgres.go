// Package store implements the audit outbox. Events are inserted into the
// outbox table inside the caller's transaction and relayed to Kafka by the
// audit worker; rows are kept after publishing for local inspection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tradegate/internal/audit"
	id "tradegate/pkg/domain"
	txcontext "tradegate/pkg/platform/tx"
)

// Payload is the JSON structure relayed to Kafka.
type Payload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	AccountID string `json:"account_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func eventPayload(eventID uuid.UUID, event audit.Event) Payload {
	payload := Payload{
		ID:        eventID.String(),
		Action:    string(event.Action),
		Subject:   event.Subject,
		Reason:    event.Reason,
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
	}
	if !event.AccountID.IsNil() {
		payload.AccountID = event.AccountID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}
	return payload
}

// Event reconstructs the domain event from a relay payload.
func (p Payload) Event() audit.Event {
	event := audit.Event{
		Action:  audit.Action(p.Action),
		Subject: p.Subject,
		Reason:  p.Reason,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if accountID, err := id.ParseAccountID(p.AccountID); err == nil {
		event.AccountID = accountID
	}
	if actorID, err := id.ParseAccountID(p.ActorID); err == nil {
		event.ActorID = actorID
	}
	return event
}

// aggregateKey partitions the Kafka topic per account so consumers see one
// account's history in order.
func aggregateKey(event audit.Event) string {
	if !event.AccountID.IsNil() {
		return event.AccountID.String()
	}
	return string(event.Action)
}

// PostgresStore writes audit events through the transactional outbox.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payloadBytes, err := json.Marshal(eventPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_key, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.querier(ctx).ExecContext(ctx, query,
		eventID,
		aggregateKey(event),
		string(event.Action),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, aggregate_key, action, payload, created_at, published_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		if err := rows.Scan(&entry.ID, &entry.Key, &entry.Action, &entry.Payload, &entry.CreatedAt, &entry.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, entryIDs []string, publishedAt time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`
	_, err := s.querier(ctx).ExecContext(ctx, query, publishedAt, pq.Array(entryIDs))
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}
