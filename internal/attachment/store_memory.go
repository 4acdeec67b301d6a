package attachment

import (
	"context"
	"sync"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
)

// tokenIndex is the per-token membership arena: an ordered slice plus a
// reverse map from context to position for O(1) removal.
type tokenIndex struct {
	records map[id.CtxHash]TokenContext
	order   []id.CtxHash
	pos     map[id.CtxHash]int
}

func newTokenIndex() *tokenIndex {
	return &tokenIndex{
		records: make(map[id.CtxHash]TokenContext),
		pos:     make(map[id.CtxHash]int),
	}
}

// remove swap-removes hash from the ordered list and truncates.
func (t *tokenIndex) remove(hash id.CtxHash) {
	i := t.pos[hash]
	last := len(t.order) - 1
	if i != last {
		moved := t.order[last]
		t.order[i] = moved
		t.pos[moved] = i
	}
	t.order = t.order[:last]
	delete(t.pos, hash)
	delete(t.records, hash)
}

type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[id.TokenID]*tokenIndex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[id.TokenID]*tokenIndex)}
}

func (s *InMemoryStore) Attach(_ context.Context, token id.TokenID, hash id.CtxHash, record TokenContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.tokens[token]
	if idx == nil {
		idx = newTokenIndex()
		s.tokens[token] = idx
	}
	if _, exists := idx.records[hash]; exists {
		return sentinel.ErrConflict
	}
	idx.records[hash] = record
	idx.pos[hash] = len(idx.order)
	idx.order = append(idx.order, hash)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, token id.TokenID, hash id.CtxHash, record TokenContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.tokens[token]
	if idx == nil {
		return sentinel.ErrNotFound
	}
	if _, exists := idx.records[hash]; !exists {
		return sentinel.ErrNotFound
	}
	idx.records[hash] = record
	return nil
}

func (s *InMemoryStore) Detach(_ context.Context, token id.TokenID, hash id.CtxHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.tokens[token]
	if idx == nil {
		return sentinel.ErrNotFound
	}
	if _, exists := idx.records[hash]; !exists {
		return sentinel.ErrNotFound
	}
	idx.remove(hash)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, token id.TokenID, hash id.CtxHash) (*TokenContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tokens[token]
	if idx == nil {
		return nil, sentinel.ErrNotFound
	}
	record, exists := idx.records[hash]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) List(_ context.Context, token id.TokenID) ([]id.CtxHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tokens[token]
	if idx == nil {
		return nil, nil
	}
	return append([]id.CtxHash{}, idx.order...), nil
}

func (s *InMemoryStore) Count(_ context.Context, token id.TokenID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tokens[token]
	if idx == nil {
		return 0, nil
	}
	return len(idx.order), nil
}

func (s *InMemoryStore) At(_ context.Context, token id.TokenID, index int) (id.CtxHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tokens[token]
	if idx == nil || index < 0 || index >= len(idx.order) {
		return "", sentinel.ErrNotFound
	}
	return idx.order[index], nil
}
