package reversal

import (
	"fmt"

	"paynet-platform/internal/transaction"
)

// Variant names one reversal entry point. The four variants share one state
// machine; only their preconditions differ, and those differences are real
// business rules, so they live in an explicit table instead of being merged.
type Variant string

const (
	// VariantGeneric is the admin-driven reversal of any transaction type.
	VariantGeneric Variant = "generic"
	// VariantBBPSFailure refunds a bill payment the gateway failed; it must
	// never touch a successful payment.
	VariantBBPSFailure Variant = "bbps_failure"
	// VariantSettlementFailure refunds a settlement whose bank transfer
	// failed after the wallet was debited.
	VariantSettlementFailure Variant = "settlement_failure"
	// VariantAEPSReconciliation reverses a successful AEPS transaction that
	// post-settlement reconciliation found to be wrong.
	VariantAEPSReconciliation Variant = "aeps_reconciliation"
)

type policy struct {
	// fixedType pins the transaction type; empty means the request supplies it.
	fixedType transaction.Type

	// precondition runs after the shared not-found / already-reversed checks.
	precondition func(rec transaction.Record) error
}

var policies = map[Variant]policy{
	VariantGeneric: {
		precondition: func(transaction.Record) error { return nil },
	},
	VariantBBPSFailure: {
		fixedType: transaction.TypeBBPS,
		precondition: func(rec transaction.Record) error {
			if rec.Status == transaction.StatusSuccess {
				return fmt.Errorf("%w: cannot failure-reverse a successful bill payment", ErrPreconditionFailed)
			}
			return nil
		},
	},
	VariantSettlementFailure: {
		fixedType: transaction.TypeSettlement,
		precondition: func(rec transaction.Record) error {
			if rec.Status == transaction.StatusSuccess {
				return fmt.Errorf("%w: settlement completed successfully, nothing to refund", ErrPreconditionFailed)
			}
			return nil
		},
	},
	VariantAEPSReconciliation: {
		fixedType: transaction.TypeAEPS,
		precondition: func(rec transaction.Record) error {
			if rec.Status != transaction.StatusSuccess {
				return fmt.Errorf("%w: reconciliation reversal applies to successful transactions only", ErrPreconditionFailed)
			}
			return nil
		},
	},
}

// resolvePolicy yields the policy and the effective transaction type for one
// request.
func resolvePolicy(req Request) (policy, transaction.Type, error) {
	p, ok := policies[req.Variant]
	if !ok {
		return policy{}, "", fmt.Errorf("%w: unknown reversal variant %q", ErrValidation, req.Variant)
	}
	typ := p.fixedType
	if typ == "" {
		typ = req.TransactionType
	}
	if !transaction.ValidType(typ) {
		return policy{}, "", fmt.Errorf("%w: unsupported transaction type %q", ErrValidation, typ)
	}
	return p, typ, nil
}
