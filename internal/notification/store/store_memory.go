// Package store persists notification records. The queued/failed listings
// feed the outbox worker; ordering is oldest first so retries are fair.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradegate/internal/notification"
	id "tradegate/pkg/domain"
	"tradegate/pkg/platform/sentinel"
)

// InMemoryStore keeps notification records in a map for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.NotificationID]notification.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.NotificationID]notification.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *notification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.ID] = *rec
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *notification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	s.records[rec.ID] = *rec
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.NotificationID) (*notification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[recordID]; ok {
		copied := rec
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListQueued(_ context.Context, limit int) ([]*notification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByStatus(notification.StatusQueued, 0, limit), nil
}

func (s *InMemoryStore) ListFailedRetryable(_ context.Context, maxAttempts, limit int) ([]*notification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByStatus(notification.StatusFailed, maxAttempts, limit), nil
}

func (s *InMemoryStore) listByStatus(status notification.Status, maxAttempts, limit int) []*notification.Record {
	var out []*notification.Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if maxAttempts > 0 && rec.Attempts >= maxAttempts {
			continue
		}
		copied := rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
