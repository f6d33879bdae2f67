// Package store persists accounts. Implementations are pure I/O; transition
// rules live in the onboarding and auth services.
package store

import (
	"context"

	"tradegate/internal/account"
	id "tradegate/pkg/domain"
)

// Store is the account persistence port. FindByIDForUpdate takes a row lock
// when a transaction is in context so document decisions and uploads for the
// same account serialize.
type Store interface {
	Create(ctx context.Context, acct *account.Account) error
	Update(ctx context.Context, acct *account.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	FindByIDForUpdate(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	RecordLogin(ctx context.Context, accountID id.AccountID) error
}
