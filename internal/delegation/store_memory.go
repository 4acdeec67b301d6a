package delegation

import (
	"context"
	"sync"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	delegations map[id.TokenID]Delegation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{delegations: make(map[id.TokenID]Delegation)}
}

func (s *InMemoryStore) Get(_ context.Context, token id.TokenID) (*Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.delegations[token]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Put(_ context.Context, token id.TokenID, record Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations[token] = record
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, token id.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.delegations, token)
	return nil
}
