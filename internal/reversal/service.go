package reversal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paynet-platform/internal/audit"
	"paynet-platform/internal/ledger"
	"paynet-platform/internal/transaction"
)

var (
	ErrValidation         = errors.New("reversal: invalid request")
	ErrNotFound           = errors.New("reversal: transaction not found")
	ErrAlreadyReversed    = errors.New("reversal: transaction already reversed")
	ErrPreconditionFailed = errors.New("reversal: precondition failed")
	ErrInProgress         = errors.New("reversal: another reversal is in progress")
	ErrLedgerPosting      = errors.New("reversal: ledger posting failed")
)

type Service struct {
	repo    Repository
	stores  transaction.Registry
	ledger  ledger.Ledger
	auditor *audit.Service
	locker  Locker
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(repo Repository, stores transaction.Registry, led ledger.Ledger, auditor *audit.Service, locker Locker, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		stores:  stores,
		ledger:  led,
		auditor: auditor,
		locker:  locker,
		log:     log,
		clock:   time.Now,
	}
}

// Create runs one reversal attempt through the state machine:
//
//	validate -> snapshot -> record intent (processing) -> post refund
//	  -> completed (mark transaction reversed, audit)
//	  -> failed   (refund posting error; transaction left untouched)
//
// The processing row is unique per transaction among non-failed reversals, so
// of two concurrent attempts exactly one reaches the refund posting. The
// transaction status compare-and-swap is a second, independent guard.
func (s *Service) Create(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	pol, txType, err := resolvePolicy(req)
	if err != nil {
		return Result{}, err
	}
	store, ok := s.stores.Lookup(txType)
	if !ok {
		return Result{}, fmt.Errorf("%w: no store for transaction type %q", ErrValidation, txType)
	}

	rec, err := store.Get(ctx, req.TransactionID)
	if errors.Is(err, transaction.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, req.TransactionID)
	}
	if err != nil {
		return Result{}, err
	}
	if rec.Status == transaction.StatusReversed {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyReversed, req.TransactionID)
	}
	if err := pol.precondition(rec); err != nil {
		return Result{}, err
	}

	release, got, err := s.locker.TryAcquire(ctx, req.TransactionID)
	if err != nil {
		// A broken lock service must not block reversals; the storage guards
		// below still serialize.
		s.log.WarnContext(ctx, "reversal lock unavailable, relying on storage guards",
			slog.String("transaction_id", req.TransactionID), slog.Any("error", err))
	} else if !got {
		return Result{}, fmt.Errorf("%w: %s", ErrInProgress, req.TransactionID)
	} else {
		defer release()
	}

	// Informational snapshot for the audit trail; never gates the write.
	before := s.balanceOrZero(ctx, rec.OwnerUserID, rec.WalletType)

	now := s.clock().UTC()
	rev := Reversal{
		ID:                    uuid.NewString(),
		OriginalTransactionID: rec.ID,
		TransactionType:       txType,
		UserID:                rec.OwnerUserID,
		UserRole:              rec.OwnerRole,
		OriginalAmount:        rec.Amount,
		ReversalAmount:        rec.Amount,
		Reason:                req.Reason,
		Status:                StatusProcessing,
		OriginalLedgerID:      rec.WalletDebitID,
		AdminID:               req.AdminID,
		IPAddress:             req.IPAddress,
		Remarks:               req.Remarks,
		Metadata: map[string]string{
			"transaction_id":   rec.ID,
			"transaction_type": string(txType),
			"variant":          string(req.Variant),
		},
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, rev); err != nil {
		if errors.Is(err, ErrDuplicateActive) {
			// Another attempt holds the active row. It may still be running
			// or already completed; either way this attempt must not post.
			return Result{}, fmt.Errorf("%w: %s", ErrInProgress, req.TransactionID)
		}
		return Result{}, err
	}

	entry, err := s.ledger.AppendEntry(ctx, ledger.AppendRequest{
		UserID:        rec.OwnerUserID,
		UserRole:      rec.OwnerRole,
		WalletType:    rec.WalletType,
		FundCategory:  "reversal",
		ServiceType:   string(txType),
		TxType:        ledger.TxTypeRefund,
		Credit:        rec.Amount,
		ReferenceID:   refundReference(rec.ID, now),
		TransactionID: rev.ID,
		Status:        ledger.StatusCompleted,
		Remarks:       refundRemarks(req),
	})
	if err != nil {
		// Terminal failure: the original transaction is untouched and stays
		// reversible; no automatic retry.
		if ferr := s.repo.MarkFailed(ctx, rev.ID, err.Error()); ferr != nil {
			s.log.ErrorContext(ctx, "failed to mark reversal failed",
				slog.String("reversal_id", rev.ID), slog.Any("error", ferr))
		}
		s.log.ErrorContext(ctx, "reversal refund posting failed",
			slog.String("reversal_id", rev.ID),
			slog.String("transaction_id", rec.ID),
			slog.Any("error", err))
		return Result{}, fmt.Errorf("%w: %v", ErrLedgerPosting, err)
	}

	after := s.balanceOrZero(ctx, rec.OwnerUserID, rec.WalletType)
	completedAt := s.clock().UTC()

	if err := s.repo.MarkCompleted(ctx, rev.ID, entry.ID, completedAt); err != nil {
		// The refund is committed; the reconciler will resolve the stale
		// processing row. Do not report failure to the caller.
		s.log.ErrorContext(ctx, "reversal completed but status update failed",
			slog.String("reversal_id", rev.ID), slog.Any("error", err))
	}
	if err := store.MarkReversed(ctx, rec.ID); err != nil && !errors.Is(err, transaction.ErrAlreadyReversed) {
		s.log.ErrorContext(ctx, "reversal completed but transaction status update failed",
			slog.String("reversal_id", rev.ID),
			slog.String("transaction_id", rec.ID),
			slog.Any("error", err))
	}

	s.auditor.RecordBestEffort(ctx, audit.Entry{
		AdminID:        req.AdminID,
		ActionType:     audit.ActionReversal,
		TargetUserID:   rec.OwnerUserID,
		TargetUserRole: rec.OwnerRole,
		WalletType:     string(rec.WalletType),
		Amount:         rec.Amount,
		BeforeBalance:  before,
		AfterBalance:   after,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		Remarks:        req.Remarks,
		Metadata: map[string]string{
			"transaction_id":   rec.ID,
			"transaction_type": string(txType),
			"reversal_id":      rev.ID,
		},
	})

	rev.Status = StatusCompleted
	rev.ReversalLedgerID = entry.ID
	rev.CompletedAt = &completedAt
	return Result{
		Reversal:      rev,
		BeforeBalance: before,
		AfterBalance:  after,
		Amount:        rec.Amount,
	}, nil
}

// StuckProcessing lists reversals still processing past the given age, for
// operator dashboards; the reconciler resolves them on its own schedule.
func (s *Service) StuckProcessing(ctx context.Context, olderThan time.Duration) ([]Reversal, error) {
	return s.repo.StuckProcessing(ctx, s.clock().UTC().Add(-olderThan))
}

func (s *Service) balanceOrZero(ctx context.Context, userID string, walletType ledger.WalletType) decimal.Decimal {
	bal, err := s.ledger.GetBalance(ctx, userID, walletType)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			s.log.WarnContext(ctx, "balance snapshot failed",
				slog.String("user_id", userID), slog.Any("error", err))
		}
		return decimal.Zero
	}
	return bal
}

func validateRequest(req Request) error {
	var missing []string
	if req.TransactionID == "" {
		missing = append(missing, "transaction_id")
	}
	if strings.TrimSpace(req.Reason) == "" {
		missing = append(missing, "reason")
	}
	if req.AdminID == "" {
		missing = append(missing, "admin_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// refundReference is unique per attempt so a retried reversal never collides
// with a previous attempt's ledger row.
func refundReference(transactionID string, now time.Time) string {
	return fmt.Sprintf("REV-%s-%d", transactionID, now.UnixNano())
}

func refundRemarks(req Request) string {
	if req.Remarks != "" {
		return fmt.Sprintf("reversal: %s (%s)", req.Reason, req.Remarks)
	}
	return "reversal: " + req.Reason
}
