// Package transaction exposes the business-transaction records (BBPS, AEPS,
// settlement, POS, admin transfers) to the reversal flow. Each type lives in
// its own table but shares the shape the reversal machine needs.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"paynet-platform/internal/ledger"
)

type Type string

const (
	TypeBBPS       Type = "bbps"
	TypeAEPS       Type = "aeps"
	TypeSettlement Type = "settlement"
	TypePOS        Type = "pos"
	TypeAdmin      Type = "admin"
)

func ValidType(t Type) bool {
	switch t {
	case TypeBBPS, TypeAEPS, TypeSettlement, TypePOS, TypeAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusReversed Status = "reversed"
)

// Record is the cross-type projection of one business transaction. The
// payment flows that create these rows own the type-specific columns; the
// reversal machine only ever reads this shape and flips Status to reversed.
type Record struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	OwnerUserID string `json:"owner_user_id"`
	OwnerRole   string `json:"owner_role"`

	Amount decimal.Decimal `json:"amount"`

	WalletType    ledger.WalletType `json:"wallet_type"`
	WalletDebitID string            `json:"wallet_debit_id"`

	Status Status `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}
