package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// NOTE: This repository assumes the following tables exist:
// - wallet_ledger (immutable append-only)
// - wallet_accounts (projection, one row per (user_id, wallet_type))
//
// wallet_ledger.reference_id carries a unique index; it is the idempotency
// key that keeps retried postings from double-applying. A violation surfaces
// as ErrDuplicateReference.

const uniqueViolation = "23505"

func getBalance(ctx context.Context, db *sql.DB, userID string, walletType WalletType) (Balance, error) {
	const q = `
SELECT user_id, wallet_type, balance, updated_at
FROM wallet_accounts
WHERE user_id = $1 AND wallet_type = $2
`
	var b Balance
	if err := db.QueryRowContext(ctx, q, userID, walletType).Scan(
		&b.UserID,
		&b.WalletType,
		&b.Amount,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// lockAccount creates the account row if absent, then takes a row lock and
// returns the prior balance. The lock is the serialization point for all
// concurrent appends on this account.
func lockAccount(ctx context.Context, tx *sql.Tx, userID string, walletType WalletType, now time.Time) (decimal.Decimal, error) {
	const ins = `
INSERT INTO wallet_accounts (user_id, wallet_type, balance, updated_at)
VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id, wallet_type) DO NOTHING
`
	if _, err := tx.ExecContext(ctx, ins, userID, walletType, now); err != nil {
		return decimal.Zero, err
	}

	const sel = `
SELECT balance
FROM wallet_accounts
WHERE user_id = $1 AND wallet_type = $2
FOR UPDATE
`
	var bal decimal.Decimal
	if err := tx.QueryRowContext(ctx, sel, userID, walletType).Scan(&bal); err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO wallet_ledger (
  id, user_id, user_role, wallet_type, fund_category, service_type, tx_type,
  credit, debit, closing_balance, reference_id, transaction_id, status, remarks, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		e.UserRole,
		e.WalletType,
		e.FundCategory,
		e.ServiceType,
		e.TxType,
		e.Credit,
		e.Debit,
		e.ClosingBalance,
		e.ReferenceID,
		e.TransactionID,
		e.Status,
		e.Remarks,
		e.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateReference
	}
	return err
}

func updateAccountBalance(ctx context.Context, tx *sql.Tx, userID string, walletType WalletType, balance decimal.Decimal, now time.Time) error {
	const q = `
UPDATE wallet_accounts
SET balance = $3, updated_at = $4
WHERE user_id = $1 AND wallet_type = $2
`
	_, err := tx.ExecContext(ctx, q, userID, walletType, balance, now)
	return err
}

func getEntryByTransaction(ctx context.Context, db *sql.DB, transactionID string) (Entry, error) {
	const q = `
SELECT id, user_id, user_role, wallet_type, fund_category, service_type, tx_type,
       credit, debit, closing_balance, reference_id, transaction_id, status, remarks, created_at
FROM wallet_ledger
WHERE transaction_id = $1
ORDER BY created_at DESC
LIMIT 1
`
	var e Entry
	if err := db.QueryRowContext(ctx, q, transactionID).Scan(
		&e.ID,
		&e.UserID,
		&e.UserRole,
		&e.WalletType,
		&e.FundCategory,
		&e.ServiceType,
		&e.TxType,
		&e.Credit,
		&e.Debit,
		&e.ClosingBalance,
		&e.ReferenceID,
		&e.TransactionID,
		&e.Status,
		&e.Remarks,
		&e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// ListEntries returns completed and pending entries for one account, oldest
// first. Read-only; used by reporting and reconciliation surfaces.
func ListEntries(ctx context.Context, db *sql.DB, userID string, walletType WalletType, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, user_id, user_role, wallet_type, fund_category, service_type, tx_type,
       credit, debit, closing_balance, reference_id, transaction_id, status, remarks, created_at
FROM wallet_ledger
WHERE user_id = $1 AND wallet_type = $2
ORDER BY created_at ASC
LIMIT $3
`
	rows, err := db.QueryContext(ctx, q, userID, walletType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.UserRole,
			&e.WalletType,
			&e.FundCategory,
			&e.ServiceType,
			&e.TxType,
			&e.Credit,
			&e.Debit,
			&e.ClosingBalance,
			&e.ReferenceID,
			&e.TransactionID,
			&e.Status,
			&e.Remarks,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
