package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"paynet-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the atomic wallet primitive the rest of the core depends on.
//
// Contract (must hold for every implementation):
// - GetBalance is a point-in-time read; it never gates the correctness of a
//   pending write.
// - AppendEntry computes the new closing balance from the prior entry and
//   inserts the row in one transaction, serializing concurrent appends for
//   the same (user_id, wallet_type).
type Ledger interface {
	GetBalance(ctx context.Context, userID string, walletType WalletType) (decimal.Decimal, error)
	AppendEntry(ctx context.Context, req AppendRequest) (Entry, error)
}

var (
	ErrNotFound        = errors.New("ledger: account not found")
	ErrInvalidArgument = errors.New("ledger: invalid argument")

	// ErrDuplicateReference means an entry with this reference_id already
	// exists. reference_id is the idempotency key: callers that retry a
	// posting treat this as already-applied, not as a failure.
	ErrDuplicateReference = errors.New("ledger: duplicate reference")
)

// Service is the Postgres-backed Ledger. Concurrent appends for one account
// serialize on a row-level lock on the wallet_accounts projection row.
type Service struct {
	db *sql.DB

	// timeout bounds every call so a slow storage node cannot hang a handler.
	timeout time.Duration

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{db: db, timeout: timeout, clock: time.Now}
}

func (s *Service) GetBalance(ctx context.Context, userID string, walletType WalletType) (decimal.Decimal, error) {
	if userID == "" || walletType == "" {
		return decimal.Zero, ErrInvalidArgument
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := getBalance(ctx, s.db, userID, walletType)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Amount, nil
}

func (s *Service) AppendEntry(ctx context.Context, req AppendRequest) (Entry, error) {
	if err := validateAppend(req); err != nil {
		return Entry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.clock().UTC()
	entryID := uuid.NewString()

	var out Entry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Serialize all writers for this account.
		prior, err := lockAccount(ctx, tx, req.UserID, req.WalletType, now)
		if err != nil {
			return err
		}

		closing := prior
		if req.Status == StatusCompleted {
			closing = prior.Add(req.Credit).Sub(req.Debit)
		}

		e := Entry{
			ID:             entryID,
			UserID:         req.UserID,
			UserRole:       req.UserRole,
			WalletType:     req.WalletType,
			FundCategory:   req.FundCategory,
			ServiceType:    req.ServiceType,
			TxType:         req.TxType,
			Credit:         req.Credit,
			Debit:          req.Debit,
			ClosingBalance: closing,
			ReferenceID:    req.ReferenceID,
			TransactionID:  req.TransactionID,
			Status:         req.Status,
			Remarks:        req.Remarks,
			CreatedAt:      now,
		}
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}

		// Only completed entries move the projection.
		if req.Status == StatusCompleted {
			if err := updateAccountBalance(ctx, tx, req.UserID, req.WalletType, closing, now); err != nil {
				return err
			}
		}

		out = e
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

// ListEntries returns the account's entries oldest first, for statement and
// reconciliation views. Not part of the Ledger primitive contract.
func (s *Service) ListEntries(ctx context.Context, userID string, walletType WalletType, limit int) ([]Entry, error) {
	if userID == "" || walletType == "" {
		return nil, ErrInvalidArgument
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return ListEntries(ctx, s.db, userID, walletType, limit)
}

// GetEntryByTransaction returns the newest entry stamped with the given
// transaction_id. The reversal reconciler uses it to recover the refund
// entry id for a reversal whose writer crashed before the status update.
func (s *Service) GetEntryByTransaction(ctx context.Context, transactionID string) (Entry, error) {
	if transactionID == "" {
		return Entry{}, ErrInvalidArgument
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return getEntryByTransaction(ctx, s.db, transactionID)
}

func validateAppend(req AppendRequest) error {
	if req.UserID == "" || req.WalletType == "" {
		return ErrInvalidArgument
	}
	if req.TxType == "" {
		return ErrInvalidArgument
	}
	switch req.Status {
	case StatusPending, StatusCompleted, StatusFailed:
	default:
		return ErrInvalidArgument
	}
	if req.Credit.IsNegative() || req.Debit.IsNegative() {
		return ErrInvalidArgument
	}
	// Exactly one side must be positive.
	if req.Credit.IsPositive() == req.Debit.IsPositive() {
		return ErrInvalidArgument
	}
	if req.ReferenceID == "" {
		return ErrInvalidArgument
	}
	return nil
}
