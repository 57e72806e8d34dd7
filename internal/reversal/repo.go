package reversal

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateActive means an active (processing or completed) reversal
// already exists for the transaction. Insert must detect it atomically; this
// closes the window where two requests both pass the already-reversed read.
var ErrDuplicateActive = errors.New("reversal: active reversal already exists for transaction")

type Repository interface {
	// Insert persists a new processing reversal. It must fail with
	// ErrDuplicateActive when the transaction already has a reversal that is
	// not failed.
	Insert(ctx context.Context, r Reversal) error

	GetByID(ctx context.Context, id string) (Reversal, error)

	// MarkCompleted records the terminal success state.
	MarkCompleted(ctx context.Context, id, reversalLedgerID string, completedAt time.Time) error

	// MarkFailed records the terminal failure state. A failed reversal does
	// not block a later attempt.
	MarkFailed(ctx context.Context, id, remarks string) error

	// StuckProcessing lists reversals still processing that were created
	// before the cutoff; the reconciler resolves them.
	StuckProcessing(ctx context.Context, before time.Time) ([]Reversal, error)
}
