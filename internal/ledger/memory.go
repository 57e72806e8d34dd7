package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-memory Ledger useful for tests and early development.
// It honors the same contract as the Postgres service: appends per account
// are serialized and the closing-balance chain is maintained.
//
// NOTE: This is not intended for production; replace with Service.
type Memory struct {
	mu       sync.Mutex
	entries  map[accountKey][]Entry
	balances map[accountKey]decimal.Decimal
	byRef    map[string]Entry

	clock func() time.Time

	// failNext, when set, makes the next AppendEntry fail with that error
	// without writing anything. Used to simulate storage failures.
	failNext error
}

type accountKey struct {
	userID     string
	walletType WalletType
}

func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[accountKey][]Entry),
		balances: make(map[accountKey]decimal.Decimal),
		byRef:    make(map[string]Entry),
		clock:    time.Now,
	}
}

// FailNextAppend arms a one-shot append failure.
func (m *Memory) FailNextAppend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) GetBalance(ctx context.Context, userID string, walletType WalletType) (decimal.Decimal, error) {
	_ = ctx
	if userID == "" || walletType == "" {
		return decimal.Zero, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[accountKey{userID, walletType}]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return bal, nil
}

func (m *Memory) AppendEntry(ctx context.Context, req AppendRequest) (Entry, error) {
	_ = ctx
	if err := validateAppend(req); err != nil {
		return Entry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return Entry{}, err
	}

	// Same idempotency contract as the unique index on reference_id.
	if _, exists := m.byRef[req.ReferenceID]; exists {
		return Entry{}, ErrDuplicateReference
	}

	key := accountKey{req.UserID, req.WalletType}
	prior := m.balances[key] // zero for a new account

	closing := prior
	if req.Status == StatusCompleted {
		closing = prior.Add(req.Credit).Sub(req.Debit)
	}

	e := Entry{
		ID:             uuid.NewString(),
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
		CreatedAt:      m.clock().UTC(),
	}
	m.entries[key] = append(m.entries[key], e)
	m.byRef[req.ReferenceID] = e

	if req.Status == StatusCompleted {
		m.balances[key] = closing
	} else if _, ok := m.balances[key]; !ok {
		m.balances[key] = prior
	}

	return e, nil
}

// ListEntries mirrors the Postgres statement read.
func (m *Memory) ListEntries(ctx context.Context, userID string, walletType WalletType, limit int) ([]Entry, error) {
	_ = ctx
	if userID == "" || walletType == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 100
	}
	all := m.Entries(userID, walletType)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetEntryByTransaction mirrors the Postgres recovery lookup: the newest
// entry stamped with the given transaction_id.
func (m *Memory) GetEntryByTransaction(ctx context.Context, transactionID string) (Entry, error) {
	_ = ctx
	if transactionID == "" {
		return Entry{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *Entry
	for _, entries := range m.entries {
		for i := range entries {
			e := entries[i]
			if e.TransactionID != transactionID {
				continue
			}
			if found == nil || e.CreatedAt.After(found.CreatedAt) {
				found = &e
			}
		}
	}
	if found == nil {
		return Entry{}, ErrNotFound
	}
	return *found, nil
}

// Entries returns a copy of all entries for one account, oldest first.
func (m *Memory) Entries(userID string, walletType WalletType) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.entries[accountKey{userID, walletType}]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}
