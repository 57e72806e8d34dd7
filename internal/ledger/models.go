package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is an immutable append-only wallet ledger row.
//
// Invariants:
// - Entries are never updated or deleted.
// - For a fixed (user_id, wallet_type), completed entries are totally ordered and
//   closing_balance[n] = closing_balance[n-1] + credit[n] - debit[n].
// - Any balance change MUST have a corresponding ledger entry; no code mutates
//   a balance directly.
type Entry struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"user_id" db:"user_id"`
	UserRole string `json:"user_role" db:"user_role"`

	WalletType WalletType `json:"wallet_type" db:"wallet_type"`

	// FundCategory and ServiceType classify the money movement for reporting
	// (e.g., "bbps"/"Electricity", "payout"/"IMPS").
	FundCategory string `json:"fund_category,omitempty" db:"fund_category"`
	ServiceType  string `json:"service_type,omitempty" db:"service_type"`

	TxType TxType `json:"tx_type" db:"tx_type"`

	Credit decimal.Decimal `json:"credit" db:"credit"`
	Debit  decimal.Decimal `json:"debit" db:"debit"`

	// ClosingBalance is computed by the append primitive inside the same DB
	// transaction that inserts the row; never computed client-side.
	ClosingBalance decimal.Decimal `json:"closing_balance" db:"closing_balance"`

	// ReferenceID is a caller-supplied unique reference for safe retries and
	// reconciliation (e.g., "REV-<txid>-<ts>").
	ReferenceID string `json:"reference_id" db:"reference_id"`

	// TransactionID links to the originating business transaction or reversal.
	TransactionID string `json:"transaction_id,omitempty" db:"transaction_id"`

	Status  EntryStatus `json:"status" db:"status"`
	Remarks string      `json:"remarks,omitempty" db:"remarks"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type WalletType string

const (
	WalletPrimary WalletType = "primary"
	WalletAEPS    WalletType = "aeps"
)

type TxType string

const (
	TxTypePayment    TxType = "PAYMENT"
	TxTypeRefund     TxType = "REFUND"
	TxTypeCommission TxType = "COMMISSION"
	TxTypeCharge     TxType = "CHARGE"
	TxTypeTransfer   TxType = "TRANSFER"
	TxTypeSettlement TxType = "SETTLEMENT"
)

type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusFailed    EntryStatus = "failed"
)

// AppendRequest is the input to the append primitive. Exactly one of
// Credit/Debit must be positive; the other must be zero.
type AppendRequest struct {
	UserID       string
	UserRole     string
	WalletType   WalletType
	FundCategory string
	ServiceType  string
	TxType       TxType

	Credit decimal.Decimal
	Debit  decimal.Decimal

	ReferenceID   string
	TransactionID string
	Status        EntryStatus
	Remarks       string
}

// Balance is the projection row for one (user_id, wallet_type) account.
// It always equals the closing_balance of the latest completed entry.
type Balance struct {
	UserID     string          `json:"user_id" db:"user_id"`
	WalletType WalletType      `json:"wallet_type" db:"wallet_type"`
	Amount     decimal.Decimal `json:"amount" db:"balance"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
