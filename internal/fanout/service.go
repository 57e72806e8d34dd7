// Package fanout turns a commission breakdown into ledger postings across the
// partner hierarchy: the retailer pays the charge, commissions flow upward,
// and the company's margin lands on a dedicated revenue account.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"paynet-platform/internal/audit"
	"paynet-platform/internal/commission"
	"paynet-platform/internal/ledger"
	"paynet-platform/internal/transaction"
)

// Posting is the outcome of one ledger call in the fan-out.
type Posting struct {
	Component string          `json:"component"`
	UserID    string          `json:"user_id"`
	UserRole  string          `json:"user_role"`
	Credit    decimal.Decimal `json:"credit"`
	Debit     decimal.Decimal `json:"debit"`
	EntryID   string          `json:"entry_id,omitempty"`

	// AlreadyPosted marks a component a previous run committed; this run
	// skipped it instead of double-applying.
	AlreadyPosted bool `json:"already_posted,omitempty"`
}

// Result reports what the fan-out actually posted. Partial means a posting
// failed after earlier ones committed; each committed posting stands on its
// own. The gap is recorded as a reconciliation case and closed by re-running
// the fan-out, which skips the committed components.
type Result struct {
	Postings []Posting `json:"postings"`
	Partial  bool      `json:"partial"`
}

type Service struct {
	ledger           ledger.Ledger
	chains           ChainResolver
	companyAccountID string
	auditor          *audit.Service
	log              *slog.Logger
}

func NewService(l ledger.Ledger, chains ChainResolver, companyAccountID string, auditor *audit.Service, log *slog.Logger) *Service {
	return &Service{ledger: l, chains: chains, companyAccountID: companyAccountID, auditor: auditor, log: log}
}

// Post writes one ledger entry per non-zero component. The postings are
// independent ledger calls, deliberately not one cross-account transaction:
// each account's balance chain stays serialized inside the ledger, and a
// mid-flow failure stops the fan-out and surfaces as Partial.
//
// Post is idempotent per component: each posting carries the reference
// FAN-<txid>-<component>, so re-running it after a partial failure skips the
// components that already committed and finishes the rest.
func (s *Service) Post(ctx context.Context, tx transaction.Record, b commission.Breakdown) (Result, error) {
	chain, err := s.chains.ParentChain(ctx, tx.OwnerUserID)
	if err != nil {
		return Result{}, err
	}

	type step struct {
		component string
		userID    string
		userRole  string
		credit    decimal.Decimal
		debit     decimal.Decimal
		txType    ledger.TxType
		category  string
	}

	steps := []step{
		{
			component: "retailer_charge",
			userID:    tx.OwnerUserID, userRole: tx.OwnerRole,
			debit:  b.RetailerCharge.Amount,
			txType: ledger.TxTypeCharge, category: "service_charge",
		},
		{
			component: "retailer_commission",
			userID:    tx.OwnerUserID, userRole: tx.OwnerRole,
			credit: b.RetailerCommission.Amount,
			txType: ledger.TxTypeCommission, category: "commission",
		},
		{
			component: "distributor_commission",
			userID:    chain.DistributorID, userRole: "distributor",
			credit: b.DistributorCommission.Amount,
			txType: ledger.TxTypeCommission, category: "commission",
		},
		{
			component: "md_commission",
			userID:    chain.MasterDistributorID, userRole: "master_distributor",
			credit: b.MDCommission.Amount,
			txType: ledger.TxTypeCommission, category: "commission",
		},
		{
			component: "company_charge",
			userID:    s.companyAccountID, userRole: "company",
			credit: b.CompanyCharge.Amount,
			txType: ledger.TxTypeCharge, category: "company_revenue",
		},
	}

	res := Result{}
	for _, st := range steps {
		amount := st.credit
		if amount.IsZero() {
			amount = st.debit
		}
		if amount.IsZero() {
			continue
		}
		if st.userID == "" {
			// No such tier above this retailer; the component simply has
			// no destination account.
			s.log.WarnContext(ctx, "fan-out component has no destination account",
				slog.String("component", st.component),
				slog.String("transaction_id", tx.ID),
			)
			continue
		}

		entry, err := s.ledger.AppendEntry(ctx, ledger.AppendRequest{
			UserID:        st.userID,
			UserRole:      st.userRole,
			WalletType:    ledger.WalletPrimary,
			FundCategory:  st.category,
			ServiceType:   string(tx.Type),
			TxType:        st.txType,
			Credit:        st.credit,
			Debit:         st.debit,
			ReferenceID:   fmt.Sprintf("FAN-%s-%s", tx.ID, st.component),
			TransactionID: tx.ID,
			Status:        ledger.StatusCompleted,
			Remarks:       fmt.Sprintf("%s for %s transaction %s", st.component, tx.Type, tx.ID),
		})
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// An earlier run already committed this component.
			s.log.InfoContext(ctx, "fan-out component already posted",
				slog.String("component", st.component),
				slog.String("transaction_id", tx.ID),
			)
			res.Postings = append(res.Postings, Posting{
				Component:     st.component,
				UserID:        st.userID,
				UserRole:      st.userRole,
				Credit:        st.credit,
				Debit:         st.debit,
				AlreadyPosted: true,
			})
			continue
		}
		if err != nil {
			res.Partial = len(res.Postings) > 0
			s.log.ErrorContext(ctx, "fan-out posting failed",
				slog.String("component", st.component),
				slog.String("transaction_id", tx.ID),
				slog.String("user_id", st.userID),
				slog.Bool("partial", res.Partial),
				slog.Any("error", err),
			)
			if res.Partial {
				s.recordPartial(ctx, tx, res, st.component)
			}
			return res, fmt.Errorf("fanout: post %s for transaction %s: %w", st.component, tx.ID, err)
		}
		res.Postings = append(res.Postings, Posting{
			Component: st.component,
			UserID:    st.userID,
			UserRole:  st.userRole,
			Credit:    st.credit,
			Debit:     st.debit,
			EntryID:   entry.ID,
		})
	}
	return res, nil
}

// recordPartial persists the reconciliation case: which components stand and
// which one broke the run. Operators close it by re-running the fan-out.
func (s *Service) recordPartial(ctx context.Context, tx transaction.Record, res Result, failedComponent string) {
	posted := make([]string, 0, len(res.Postings))
	for _, p := range res.Postings {
		posted = append(posted, p.Component)
	}
	s.auditor.RecordBestEffort(ctx, audit.Entry{
		AdminID:        "system",
		ActionType:     audit.ActionFanoutPartial,
		TargetUserID:   tx.OwnerUserID,
		TargetUserRole: tx.OwnerRole,
		WalletType:     string(ledger.WalletPrimary),
		Amount:         tx.Amount,
		Remarks:        "commission fan-out stopped mid-chain",
		Metadata: map[string]string{
			"transaction_id":    tx.ID,
			"transaction_type":  string(tx.Type),
			"failed_component":  failedComponent,
			"posted_components": strings.Join(posted, ","),
		},
	})
}
