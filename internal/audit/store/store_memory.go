package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/audit"
)

// InMemoryStore keeps outbox entries in a slice for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]audit.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[uuid.UUID]audit.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	payload, err := json.Marshal(eventPayload(uuid.New(), event))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := audit.Entry{
		ID:        uuid.New(),
		Key:       aggregateKey(event),
		Action:    event.Action,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, entry := range s.entries {
		if entry.PublishedAt == nil {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, entryIDs []string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range entryIDs {
		entryID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if entry, ok := s.entries[entryID]; ok {
			entry.PublishedAt = &publishedAt
			s.entries[entryID] = entry
		}
	}
	return nil
}

// Events decodes every appended payload, published or not. Test helper.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []audit.Entry
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })

	var out []audit.Event
	for _, entry := range entries {
		var payload Payload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			continue
		}
		out = append(out, payload.Event())
	}
	return out
}
