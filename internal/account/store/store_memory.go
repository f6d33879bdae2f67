package store

import (
	"context"
	"sync"
	"time"

	"tradegate/internal/account"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in a map. It backs unit tests and favors
// clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]account.Account
	byEmail  map[string]id.AccountID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.AccountID]account.Account),
		byEmail:  make(map[string]id.AccountID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[acct.Email]; exists {
		return sentinel.ErrConflict
	}
	now := time.Now()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	s.accounts[acct.ID] = *acct
	s.byEmail[acct.Email] = acct.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; !ok {
		return sentinel.ErrNotFound
	}
	acct.UpdatedAt = time.Now()
	s.accounts[acct.ID] = *acct
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[accountID]; ok {
		copied := acct
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByIDForUpdate matches the locking signature of the SQL store. The map
// mutex already serializes access, so no extra locking is needed here.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return s.FindByID(ctx, accountID)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if accountID, ok := s.byEmail[email]; ok {
		copied := s.accounts[accountID]
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) RecordLogin(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	acct.LastLoginAt = &now
	acct.UpdatedAt = now
	s.accounts[accountID] = acct
	return nil
}
