package audit

import (
	"context"
	"sync"
)

// MemoryRepo collects entries in memory for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry

	// FailWith, when set, makes every Insert fail. Used to verify the
	// best-effort contract.
	FailWith error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
