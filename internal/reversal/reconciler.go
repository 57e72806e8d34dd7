package reversal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paynet-platform/internal/ledger"
	"paynet-platform/internal/transaction"
)

// RefundLookup finds the refund entry a crashed attempt posted, keyed by the
// reversal id it stamped into the entry's transaction_id.
type RefundLookup interface {
	GetEntryByTransaction(ctx context.Context, transactionID string) (ledger.Entry, error)
}

// Reconciler resolves reversals stuck in processing: rows whose creator
// crashed (or lost the storage race) between the intent insert and the
// terminal status update.
//
// Resolution rule: if the original transaction is marked reversed, the refund
// committed and only the status update was lost, so the reversal completes;
// otherwise it fails, which frees the transaction for a fresh attempt.
type Reconciler struct {
	repo      Repository
	stores    transaction.Registry
	refunds   RefundLookup
	threshold time.Duration
	interval  time.Duration
	log       *slog.Logger
	clock     func() time.Time
}

func NewReconciler(repo Repository, stores transaction.Registry, refunds RefundLookup, threshold, interval time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		stores:    stores,
		refunds:   refunds,
		threshold: threshold,
		interval:  interval,
		log:       log,
		clock:     time.Now,
	}
}

// Run sweeps until the context is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.log.ErrorContext(ctx, "reversal sweep failed", slog.Any("error", err))
			} else if n > 0 {
				r.log.InfoContext(ctx, "reversal sweep resolved stuck rows", slog.Int("count", n))
			}
		}
	}
}

// Sweep resolves every reversal stuck past the threshold and returns how many
// it touched.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock().UTC().Add(-r.threshold)
	stuck, err := r.repo.StuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, rev := range stuck {
		if err := r.resolve(ctx, rev); err != nil {
			r.log.ErrorContext(ctx, "failed to resolve stuck reversal",
				slog.String("reversal_id", rev.ID),
				slog.String("transaction_id", rev.OriginalTransactionID),
				slog.Any("error", err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (r *Reconciler) resolve(ctx context.Context, rev Reversal) error {
	store, ok := r.stores.Lookup(rev.TransactionType)
	if !ok {
		return r.repo.MarkFailed(ctx, rev.ID, "reconciler: unknown transaction type")
	}

	rec, err := store.Get(ctx, rev.OriginalTransactionID)
	if errors.Is(err, transaction.ErrNotFound) {
		return r.repo.MarkFailed(ctx, rev.ID, "reconciler: original transaction missing")
	}
	if err != nil {
		return err
	}

	if rec.Status == transaction.StatusReversed {
		// The writer crashed before persisting the refund entry id; recover
		// it from the ledger so the completed row links to its refund.
		ledgerID := rev.ReversalLedgerID
		if ledgerID == "" {
			entry, err := r.refunds.GetEntryByTransaction(ctx, rev.ID)
			switch {
			case err == nil:
				ledgerID = entry.ID
			case errors.Is(err, ledger.ErrNotFound):
				r.log.WarnContext(ctx, "refund entry not found for stuck reversal",
					slog.String("reversal_id", rev.ID))
			default:
				return err
			}
		}
		r.log.WarnContext(ctx, "completing stuck reversal whose refund committed",
			slog.String("reversal_id", rev.ID),
			slog.String("transaction_id", rev.OriginalTransactionID))
		return r.repo.MarkCompleted(ctx, rev.ID, ledgerID, r.clock().UTC())
	}
	return r.repo.MarkFailed(ctx, rev.ID, "reconciler: refund never committed, attempt abandoned")
}
