// Package store persists document records. Pure I/O; upload policy and
// review rules live in the document and onboarding services.
package store

import (
	"context"
	"time"

	"tradegate/internal/document"
	id "tradegate/pkg/domain"
)

// Store is the document persistence port. Upsert enforces one record per
// (account, kind): replacing keeps the existing row id. FindByIDForUpdate
// locks the row so a decision and a re-upload for the same document
// serialize.
type Store interface {
	Upsert(ctx context.Context, doc *document.Document) error
	Update(ctx context.Context, doc *document.Document) error
	Delete(ctx context.Context, documentID id.DocumentID) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*document.Document, error)
	FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*document.Document, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*document.Document, error)
	ListRejectedBefore(ctx context.Context, cutoff time.Time) ([]*document.Document, error)
}
