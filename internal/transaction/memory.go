package transaction

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests. MarkReversed mirrors the
// Postgres compare-and-swap: the first caller wins, later callers get
// ErrAlreadyReversed.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) MarkReversed(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == StatusReversed {
		return ErrAlreadyReversed
	}
	rec.Status = StatusReversed
	s.records[id] = rec
	return nil
}
