// Package audit records privileged mutating actions for compliance review.
// Entries are append-only and write failures never fail the action they
// describe; the gap is logged instead.
package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActionType string

const (
	ActionReversal       ActionType = "reversal"
	ActionWalletAdjust   ActionType = "wallet_adjust"
	ActionSchemeAssign   ActionType = "scheme_assign"
	ActionSchemeMutation ActionType = "scheme_mutation"

	// ActionFanoutPartial is the reconciliation case a fan-out writes when it
	// stops mid-chain with some components committed.
	ActionFanoutPartial ActionType = "fanout_partial"
)

// Entry is one admin audit row.
type Entry struct {
	ID string `json:"id"`

	AdminID    string     `json:"admin_id"`
	ActionType ActionType `json:"action_type"`

	TargetUserID   string `json:"target_user_id"`
	TargetUserRole string `json:"target_user_role"`

	WalletType string `json:"wallet_type,omitempty"`

	Amount        decimal.Decimal `json:"amount"`
	BeforeBalance decimal.Decimal `json:"before_balance"`
	AfterBalance  decimal.Decimal `json:"after_balance"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Remarks  string            `json:"remarks,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
