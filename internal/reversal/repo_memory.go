package reversal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepo backs tests. Insert enforces the same one-active-reversal rule
// as the Postgres partial unique index.
type MemoryRepo struct {
	mu        sync.Mutex
	reversals map[string]Reversal

	// FailInsert, when set, makes Insert fail once.
	FailInsert error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{reversals: make(map[string]Reversal)}
}

func (r *MemoryRepo) Insert(ctx context.Context, rev Reversal) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		err := r.FailInsert
		r.FailInsert = nil
		return err
	}
	for _, existing := range r.reversals {
		if existing.OriginalTransactionID == rev.OriginalTransactionID && existing.Status != StatusFailed {
			return fmt.Errorf("%w: %s", ErrDuplicateActive, rev.OriginalTransactionID)
		}
	}
	r.reversals[rev.ID] = rev
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Reversal, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reversals[id]
	if !ok {
		return Reversal{}, fmt.Errorf("reversal: %s not found", id)
	}
	return rev, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id, reversalLedgerID string, completedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reversals[id]
	if !ok {
		return fmt.Errorf("reversal: %s not found", id)
	}
	rev.Status = StatusCompleted
	rev.ReversalLedgerID = reversalLedgerID
	rev.CompletedAt = &completedAt
	r.reversals[id] = rev
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id, remarks string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reversals[id]
	if !ok {
		return fmt.Errorf("reversal: %s not found", id)
	}
	rev.Status = StatusFailed
	if remarks != "" {
		rev.Remarks = remarks
	}
	r.reversals[id] = rev
	return nil
}

func (r *MemoryRepo) StuckProcessing(ctx context.Context, before time.Time) ([]Reversal, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Reversal
	for _, rev := range r.reversals {
		if rev.Status == StatusProcessing && rev.CreatedAt.Before(before) {
			out = append(out, rev)
		}
	}
	return out, nil
}

// All returns every stored reversal, for test assertions.
func (r *MemoryRepo) All() []Reversal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reversal, 0, len(r.reversals))
	for _, rev := range r.reversals {
		out = append(out, rev)
	}
	return out
}
