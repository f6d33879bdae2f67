package artifact

import (
	"bytes"
	"context"
	"io"
	"sync"

	"tradegate/pkg/platform/sentinel"
)

// InMemoryStorage keeps artifact bytes in a map. Test double for the
// filesystem adapter.
type InMemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{blobs: make(map[string][]byte)}
}

func (s *InMemoryStorage) Put(_ context.Context, name string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = content
	return name, nil
}

func (s *InMemoryStorage) Get(_ context.Context, reference string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if content, ok := s.blobs[reference]; ok {
		return io.NopCloser(bytes.NewReader(content)), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStorage) Delete(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, reference)
	return nil
}

// Len reports how many artifacts are held. Test helper.
func (s *InMemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
