// Package store persists verification codes and opaque tokens. The memory
// implementations back unit tests; Redis holds pending-registration codes in
// production (TTL does the expiry bookkeeping) and PostgreSQL holds tokens.
package store

import (
	"context"
	"sync"
	"time"

	"tradegate/internal/token"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
)

// InMemoryCodeStore keeps pending registrations keyed by email.
type InMemoryCodeStore struct {
	mu   sync.RWMutex
	regs map[string]token.PendingRegistration
}

func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{regs: make(map[string]token.PendingRegistration)}
}

func (s *InMemoryCodeStore) Put(_ context.Context, reg token.PendingRegistration, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg.Email] = reg
	return nil
}

func (s *InMemoryCodeStore) Get(_ context.Context, email string) (token.PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reg, ok := s.regs[email]; ok {
		return reg, nil
	}
	return token.PendingRegistration{}, sentinel.ErrNotFound
}

func (s *InMemoryCodeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, email)
	return nil
}

// InMemoryTokenStore keeps opaque tokens indexed by value.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[id.TokenID]token.Token
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[id.TokenID]token.Token)}
}

func (s *InMemoryTokenStore) Create(_ context.Context, tok token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok
	return nil
}

// InvalidateLive drops every unused token for the subject and purpose, so
// only the newly issued one can succeed.
func (s *InMemoryTokenStore) InvalidateLive(_ context.Context, accountID id.AccountID, purpose token.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tokenID, tok := range s.tokens {
		if tok.AccountID == accountID && tok.Purpose == purpose && tok.UsedAt == nil {
			delete(s.tokens, tokenID)
		}
	}
	return nil
}

func (s *InMemoryTokenStore) FindByValue(_ context.Context, value string) (token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tok := range s.tokens {
		if tok.Value == value {
			return tok, nil
		}
	}
	return token.Token{}, sentinel.ErrNotFound
}

func (s *InMemoryTokenStore) MarkUsed(_ context.Context, tokenID id.TokenID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if tok.UsedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	tok.UsedAt = &usedAt
	s.tokens[tokenID] = tok
	return nil
}
