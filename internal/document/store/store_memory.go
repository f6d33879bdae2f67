package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradegate/internal/document"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
)

// InMemoryStore keeps document records in a map for tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]document.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]document.Document)}
}

// Upsert replaces any existing record for (account, kind), keeping the
// original row id so references held by reviewers stay valid.
func (s *InMemoryStore) Upsert(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.docs {
		if existing.AccountID == doc.AccountID && existing.Kind == doc.Kind {
			doc.ID = existing.ID
			break
		}
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, documentID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, documentID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, documentID id.DocumentID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[documentID]; ok {
		copied := doc
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*document.Document, error) {
	return s.FindByID(ctx, documentID)
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*document.Document
	for _, doc := range s.docs {
		if doc.AccountID == accountID {
			copied := doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *InMemoryStore) ListRejectedBefore(_ context.Context, cutoff time.Time) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*document.Document
	for _, doc := range s.docs {
		if doc.Status == document.StatusRejected && doc.DecidedAt != nil && doc.DecidedAt.Before(cutoff) {
			copied := doc
			out = append(out, &copied)
		}
	}
	return out, nil
}
