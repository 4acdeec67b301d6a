package contextreg

import (
	"context"
	"sync"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[id.CtxHash]Context
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contexts: make(map[id.CtxHash]Context)}
}

func (s *InMemoryStore) Create(_ context.Context, hash id.CtxHash, record Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contexts[hash]; exists {
		return sentinel.ErrConflict
	}
	s.contexts[hash] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, hash id.CtxHash) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.contexts[hash]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Update(_ context.Context, hash id.CtxHash, record Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contexts[hash]; !exists {
		return sentinel.ErrNotFound
	}
	s.contexts[hash] = record
	return nil
}
