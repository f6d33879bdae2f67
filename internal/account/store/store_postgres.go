package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tradegate/internal/account"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

// PostgresStore persists accounts in PostgreSQL. When a transaction is in
// context every statement joins it, so one onboarding operation commits or
// rolls back as a unit.
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

const accountColumns = `id, email, password_hash, role, status, email_verified,
	suspension_reason, suspended_by, suspended_at, last_login_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, acct *account.Account) error {
	now := time.Now()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(acct.ID),
		acct.Email,
		acct.PasswordHash,
		string(acct.Role),
		string(acct.Status),
		acct.EmailVerified,
		nullString(acct.SuspensionReason),
		nullUUID(uuid.UUID(acct.SuspendedBy)),
		acct.SuspendedAt,
		acct.LastLoginAt,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, acct *account.Account) error {
	acct.UpdatedAt = time.Now()

	query := `
		UPDATE accounts
		SET email = $2, password_hash = $3, role = $4, status = $5,
			email_verified = $6, suspension_reason = $7, suspended_by = $8,
			suspended_at = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(acct.ID),
		acct.Email,
		acct.PasswordHash,
		string(acct.Role),
		string(acct.Status),
		acct.EmailVerified,
		nullString(acct.SuspensionReason),
		nullUUID(uuid.UUID(acct.SuspendedBy)),
		acct.SuspendedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(accountID))
}

// FindByIDForUpdate locks the account row for the rest of the transaction so
// concurrent decisions and uploads for one account serialize.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return s.findOne(ctx, query, uuid.UUID(accountID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return s.findOne(ctx, query, email)
}

func (s *PostgresStore) RecordLogin(ctx context.Context, accountID id.AccountID) error {
	query := `UPDATE accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	res, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(accountID), time.Now())
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*account.Account, error) {
	row := s.querier(ctx).QueryRowContext(ctx, query, arg)

	var (
		acct             account.Account
		accountUUID      uuid.UUID
		role, status     string
		suspensionReason sql.NullString
		suspendedBy      uuid.NullUUID
	)
	err := row.Scan(
		&accountUUID,
		&acct.Email,
		&acct.PasswordHash,
		&role,
		&status,
		&acct.EmailVerified,
		&suspensionReason,
		&suspendedBy,
		&acct.SuspendedAt,
		&acct.LastLoginAt,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	acct.ID = id.AccountID(accountUUID)
	acct.Role = account.Role(role)
	acct.Status = account.Status(status)
	acct.SuspensionReason = suspensionReason.String
	if suspendedBy.Valid {
		acct.SuspendedBy = id.AccountID(suspendedBy.UUID)
	}
	return &acct, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
