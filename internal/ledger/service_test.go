package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateAppend(t *testing.T) {
	base := AppendRequest{
		UserID:      "u1",
		UserRole:    "retailer",
		WalletType:  WalletPrimary,
		TxType:      TxTypePayment,
		Credit:      dec("100"),
		ReferenceID: "ref-1",
		Status:      StatusCompleted,
	}
	if err := validateAppend(base); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*AppendRequest)
	}{
		{"missing user", func(r *AppendRequest) { r.UserID = "" }},
		{"missing wallet type", func(r *AppendRequest) { r.WalletType = "" }},
		{"missing tx type", func(r *AppendRequest) { r.TxType = "" }},
		{"missing reference", func(r *AppendRequest) { r.ReferenceID = "" }},
		{"bad status", func(r *AppendRequest) { r.Status = "done" }},
		{"both sides zero", func(r *AppendRequest) { r.Credit = decimal.Zero }},
		{"both sides set", func(r *AppendRequest) { r.Debit = dec("5") }},
		{"negative credit", func(r *AppendRequest) { r.Credit = dec("-1") }},
	}
	for _, tc := range cases {
		req := base
		tc.mut(&req)
		if err := validateAppend(req); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestMemory_ClosingBalanceChain(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	appends := []struct {
		credit, debit string
	}{
		{"1000.00", "0"},
		{"0", "250.50"},
		{"10.25", "0"},
		{"0", "100.00"},
	}
	for i, a := range appends {
		req := AppendRequest{
			UserID:      "r1",
			UserRole:    "retailer",
			WalletType:  WalletPrimary,
			TxType:      TxTypePayment,
			Credit:      dec(a.credit),
			Debit:       dec(a.debit),
			ReferenceID: fmt.Sprintf("ref-%d", i),
			Status:      StatusCompleted,
		}
		if _, err := m.AppendEntry(ctx, req); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	entries := m.Entries("r1", WalletPrimary)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	// balance_after = balance_before + sum(credit) - sum(debit)
	running := decimal.Zero
	for i, e := range entries {
		running = running.Add(e.Credit).Sub(e.Debit)
		if !e.ClosingBalance.Equal(running) {
			t.Fatalf("entry %d: closing %s, want %s", i, e.ClosingBalance, running)
		}
	}
	if !running.Equal(dec("659.75")) {
		t.Fatalf("final balance %s, want 659.75", running)
	}

	bal, err := m.GetBalance(ctx, "r1", WalletPrimary)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Equal(running) {
		t.Fatalf("projection %s != chain %s", bal, running)
	}
}

func TestMemory_PendingEntryDoesNotMoveBalance(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.AppendEntry(ctx, AppendRequest{
		UserID: "r1", UserRole: "retailer", WalletType: WalletPrimary,
		TxType: TxTypePayment, Credit: dec("500"), ReferenceID: "r-1", Status: StatusCompleted,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	e, err := m.AppendEntry(ctx, AppendRequest{
		UserID: "r1", UserRole: "retailer", WalletType: WalletPrimary,
		TxType: TxTypePayment, Debit: dec("100"), ReferenceID: "r-2", Status: StatusPending,
	})
	if err != nil {
		t.Fatalf("append pending: %v", err)
	}
	if !e.ClosingBalance.Equal(dec("500")) {
		t.Fatalf("pending entry moved closing balance: %s", e.ClosingBalance)
	}

	bal, _ := m.GetBalance(ctx, "r1", WalletPrimary)
	if !bal.Equal(dec("500")) {
		t.Fatalf("pending entry moved projection: %s", bal)
	}
}

func TestMemory_GetBalanceUnknownAccount(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetBalance(context.Background(), "nobody", WalletPrimary); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_DuplicateReferenceDoesNotReapply(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	req := AppendRequest{
		UserID: "r1", UserRole: "retailer", WalletType: WalletPrimary,
		TxType: TxTypeCommission, Credit: dec("5.00"), ReferenceID: "FAN-tx-1-retailer_commission",
		Status: StatusCompleted,
	}
	if _, err := m.AppendEntry(ctx, req); err != nil {
		t.Fatalf("first append: %v", err)
	}

	if _, err := m.AppendEntry(ctx, req); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("retried append: got %v, want ErrDuplicateReference", err)
	}

	bal, _ := m.GetBalance(ctx, "r1", WalletPrimary)
	if !bal.Equal(dec("5.00")) {
		t.Fatalf("retry moved the balance: %s, want 5.00", bal)
	}
	if got := len(m.Entries("r1", WalletPrimary)); got != 1 {
		t.Fatalf("retry grew the ledger: %d entries", got)
	}
}

func TestMemory_GetEntryByTransaction(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	e, err := m.AppendEntry(ctx, AppendRequest{
		UserID: "r1", UserRole: "retailer", WalletType: WalletPrimary,
		TxType: TxTypeRefund, Credit: dec("100"), ReferenceID: "REV-tx-1-1",
		TransactionID: "rev-1", Status: StatusCompleted,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := m.GetEntryByTransaction(ctx, "rev-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != e.ID {
		t.Fatalf("entry %s, want %s", got.ID, e.ID)
	}

	if _, err := m.GetEntryByTransaction(ctx, "rev-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing lookup: got %v, want ErrNotFound", err)
	}
}

func TestMemory_FailNextAppendWritesNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.FailNextAppend(context.DeadlineExceeded)
	_, err := m.AppendEntry(ctx, AppendRequest{
		UserID: "r1", UserRole: "retailer", WalletType: WalletPrimary,
		TxType: TxTypeRefund, Credit: dec("10"), ReferenceID: "r-1", Status: StatusCompleted,
	})
	if err == nil {
		t.Fatalf("expected injected failure")
	}
	if got := len(m.Entries("r1", WalletPrimary)); got != 0 {
		t.Fatalf("expected no entries, got %d", got)
	}
}
