package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/notification"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

// PostgresStore persists notification records. Create joins the caller's
// transaction when one is in context, which is what makes the outbox write
// atomic with the business mutation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, rec *notification.Record) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	var accountID any
	if owner, ok := rec.Scope.AccountID(); ok {
		accountID = uuid.UUID(owner)
	}

	query := `
		INSERT INTO notifications (id, recipient, template, subject, body, account_id,
			status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		rec.Recipient,
		string(rec.Template),
		rec.Subject,
		rec.Body,
		accountID,
		string(rec.Status),
		rec.Attempts,
		rec.LastError,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *notification.Record) error {
	rec.UpdatedAt = time.Now()

	query := `
		UPDATE notifications
		SET status = $2, attempts = $3, last_error = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		string(rec.Status),
		rec.Attempts,
		rec.LastError,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.NotificationID) (*notification.Record, error) {
	query := notificationSelect + ` WHERE id = $1`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("find notification: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sentinel.ErrNotFound
	}
	return scanNotification(rows)
}

func (s *PostgresStore) ListQueued(ctx context.Context, limit int) ([]*notification.Record, error) {
	query := notificationSelect + `
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return s.list(ctx, query, limit)
}

func (s *PostgresStore) ListFailedRetryable(ctx context.Context, maxAttempts, limit int) ([]*notification.Record, error) {
	query := notificationSelect + `
		WHERE status = 'failed' AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return s.list(ctx, query, maxAttempts, limit)
}

const notificationSelect = `
	SELECT id, recipient, template, subject, body, account_id,
		status, attempts, last_error, created_at, updated_at
	FROM notifications`

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*notification.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Record
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanNotification(rows *sql.Rows) (*notification.Record, error) {
	var (
		rec         notification.Record
		recordUUID  uuid.UUID
		templateStr string
		statusStr   string
		accountUUID uuid.NullUUID
	)
	err := rows.Scan(
		&recordUUID,
		&rec.Recipient,
		&templateStr,
		&rec.Subject,
		&rec.Body,
		&accountUUID,
		&statusStr,
		&rec.Attempts,
		&rec.LastError,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	rec.ID = id.NotificationID(recordUUID)
	rec.Template = notification.TemplateKind(templateStr)
	rec.Status = notification.Status(statusStr)
	if accountUUID.Valid {
		rec.Scope = notification.AccountScope(id.AccountID(accountUUID.UUID))
	} else {
		rec.Scope = notification.SystemScope()
	}
	return &rec, nil
}
