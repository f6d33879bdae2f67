package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/document"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

// PostgresStore persists document records. A unique index on
// (account_id, kind) backs the replace-on-reupload contract.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `id, account_id, kind, reference, filename, mime_type, size,
	status, reviewer_id, comment, submitted_at, decided_at`

// Upsert inserts the document or, when a record for (account, kind) already
// exists, replaces its content while keeping the existing row id. The
// returned id is written back onto doc.
func (s *PostgresStore) Upsert(ctx context.Context, doc *document.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id, kind) DO UPDATE SET
			reference = EXCLUDED.reference,
			filename = EXCLUDED.filename,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			status = EXCLUDED.status,
			reviewer_id = NULL,
			comment = '',
			submitted_at = EXCLUDED.submitted_at,
			decided_at = NULL
		RETURNING id
	`
	var docUUID uuid.UUID
	err := s.querier(ctx).QueryRowContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.AccountID),
		string(doc.Kind),
		doc.Reference,
		doc.Filename,
		doc.MimeType,
		doc.Size,
		string(doc.Status),
		nullUUID(uuid.UUID(doc.ReviewerID)),
		doc.Comment,
		doc.SubmittedAt,
		doc.DecidedAt,
	).Scan(&docUUID)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	doc.ID = id.DocumentID(docUUID)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, doc *document.Document) error {
	query := `
		UPDATE documents
		SET status = $2, reviewer_id = $3, comment = $4, decided_at = $5
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		string(doc.Status),
		nullUUID(uuid.UUID(doc.ReviewerID)),
		doc.Comment,
		doc.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, documentID id.DocumentID) error {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, uuid.UUID(documentID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, documentID id.DocumentID) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(documentID))
}

// FindByIDForUpdate locks the document row so a decision and a concurrent
// re-upload cannot interleave.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	return s.findOne(ctx, query, uuid.UUID(documentID))
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE account_id = $1 ORDER BY submitted_at ASC`
	return s.listMany(ctx, query, uuid.UUID(accountID))
}

func (s *PostgresStore) ListRejectedBefore(ctx context.Context, cutoff time.Time) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = 'rejected' AND decided_at < $1`
	return s.listMany(ctx, query, cutoff)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*document.Document, error) {
	row := s.querier(ctx).QueryRowContext(ctx, query, arg)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) listMany(ctx context.Context, query string, arg any) ([]*document.Document, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*document.Document, error) {
	var (
		doc          document.Document
		docUUID      uuid.UUID
		accountUUID  uuid.UUID
		kindStr      string
		statusStr    string
		reviewerUUID uuid.NullUUID
	)
	err := row.Scan(
		&docUUID,
		&accountUUID,
		&kindStr,
		&doc.Reference,
		&doc.Filename,
		&doc.MimeType,
		&doc.Size,
		&statusStr,
		&reviewerUUID,
		&doc.Comment,
		&doc.SubmittedAt,
		&doc.DecidedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.ID = id.DocumentID(docUUID)
	doc.AccountID = id.AccountID(accountUUID)
	doc.Kind = document.Kind(kindStr)
	doc.Status = document.VerificationStatus(statusStr)
	if reviewerUUID.Valid {
		doc.ReviewerID = id.AccountID(reviewerUUID.UUID)
	}
	return &doc, nil
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
