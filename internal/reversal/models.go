// Package reversal undoes a business transaction's wallet effect exactly
// once. A reversal is created in processing, moves to exactly one terminal
// state, and is never revisited; the processing row is the crash-recovery
// anchor for the background reconciler.
package reversal

import (
	"time"

	"github.com/shopspring/decimal"

	"paynet-platform/internal/transaction"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Reversal struct {
	ID string `json:"id"`

	OriginalTransactionID string           `json:"original_transaction_id"`
	TransactionType       transaction.Type `json:"transaction_type"`

	UserID   string `json:"user_id"`
	UserRole string `json:"user_role"`

	OriginalAmount decimal.Decimal `json:"original_amount"`
	ReversalAmount decimal.Decimal `json:"reversal_amount"`

	Reason string `json:"reason"`
	Status Status `json:"status"`

	OriginalLedgerID string `json:"original_ledger_id,omitempty"`
	ReversalLedgerID string `json:"reversal_ledger_id,omitempty"`

	AdminID   string `json:"admin_id"`
	IPAddress string `json:"ip_address,omitempty"`

	Remarks  string            `json:"remarks,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Request is one validated reversal attempt.
type Request struct {
	TransactionID string
	Variant       Variant

	// TransactionType is required for VariantGeneric; the specialized
	// variants fix their own type.
	TransactionType transaction.Type

	Reason  string
	Remarks string

	AdminID   string
	IPAddress string
	UserAgent string
}

// Result is what the API returns for a completed reversal.
type Result struct {
	Reversal Reversal `json:"reversal"`

	BeforeBalance decimal.Decimal `json:"before_balance"`
	AfterBalance  decimal.Decimal `json:"after_balance"`
	Amount        decimal.Decimal `json:"amount"`
}
