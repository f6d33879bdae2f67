package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/token"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

// PostgresTokenStore persists opaque tokens. Pure I/O; the issuer owns the
// single-use and supersession rules.
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresTokenStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresTokenStore) Create(ctx context.Context, tok token.Token) error {
	query := `
		INSERT INTO verification_tokens (id, account_id, purpose, value, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(tok.ID),
		uuid.UUID(tok.AccountID),
		string(tok.Purpose),
		tok.Value,
		tok.ExpiresAt,
		tok.UsedAt,
		tok.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// InvalidateLive expires every unused token for the subject and purpose.
func (s *PostgresTokenStore) InvalidateLive(ctx context.Context, accountID id.AccountID, purpose token.Purpose) error {
	query := `
		UPDATE verification_tokens
		SET expires_at = $3
		WHERE account_id = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3
	`
	_, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(accountID), string(purpose), time.Now())
	if err != nil {
		return fmt.Errorf("invalidate tokens: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) FindByValue(ctx context.Context, value string) (token.Token, error) {
	query := `
		SELECT id, account_id, purpose, value, expires_at, used_at, created_at
		FROM verification_tokens
		WHERE value = $1
	`
	row := s.querier(ctx).QueryRowContext(ctx, query, value)

	var (
		tok          token.Token
		tokenUUID    uuid.UUID
		accountUUID  uuid.UUID
		purposeValue string
	)
	err := row.Scan(&tokenUUID, &accountUUID, &purposeValue, &tok.Value, &tok.ExpiresAt, &tok.UsedAt, &tok.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return token.Token{}, sentinel.ErrNotFound
		}
		return token.Token{}, fmt.Errorf("scan token: %w", err)
	}

	tok.ID = id.TokenID(tokenUUID)
	tok.AccountID = id.AccountID(accountUUID)
	tok.Purpose = token.Purpose(purposeValue)
	return tok, nil
}

// MarkUsed consumes the token atomically. The used_at guard makes a second
// consume report ErrAlreadyUsed instead of silently succeeding.
func (s *PostgresTokenStore) MarkUsed(ctx context.Context, tokenID id.TokenID, usedAt time.Time) error {
	query := `UPDATE verification_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	res, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(tokenID), usedAt)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
