package reversal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepo persists reversals.
//
// Schema:
//
//	CREATE TABLE reversals (
//	    id                      UUID PRIMARY KEY,
//	    original_transaction_id TEXT NOT NULL,
//	    transaction_type        TEXT NOT NULL,
//	    user_id                 TEXT NOT NULL,
//	    user_role               TEXT NOT NULL,
//	    original_amount         NUMERIC(14,2) NOT NULL,
//	    reversal_amount         NUMERIC(14,2) NOT NULL,
//	    reason                  TEXT NOT NULL,
//	    status                  TEXT NOT NULL,
//	    original_ledger_id      TEXT NOT NULL DEFAULT '',
//	    reversal_ledger_id      TEXT NOT NULL DEFAULT '',
//	    admin_id                TEXT NOT NULL,
//	    ip_address              TEXT NOT NULL DEFAULT '',
//	    remarks                 TEXT NOT NULL DEFAULT '',
//	    metadata                JSONB NOT NULL DEFAULT '{}',
//	    created_at              TIMESTAMPTZ NOT NULL,
//	    completed_at            TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX reversals_one_active
//	    ON reversals (original_transaction_id) WHERE status <> 'failed';
//
// The partial unique index makes Insert the serialization point for
// concurrent attempts on the same transaction.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const uniqueViolation = "23505"

func (r *PostgresRepo) Insert(ctx context.Context, rev Reversal) error {
	meta, err := json.Marshal(rev.Metadata)
	if err != nil {
		return fmt.Errorf("reversal: marshal metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO reversals (
    id, original_transaction_id, transaction_type, user_id, user_role,
    original_amount, reversal_amount, reason, status,
    original_ledger_id, reversal_ledger_id, admin_id, ip_address,
    remarks, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rev.ID, rev.OriginalTransactionID, rev.TransactionType, rev.UserID, rev.UserRole,
		rev.OriginalAmount, rev.ReversalAmount, rev.Reason, rev.Status,
		rev.OriginalLedgerID, rev.ReversalLedgerID, rev.AdminID, rev.IPAddress,
		rev.Remarks, meta, rev.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateActive, rev.OriginalTransactionID)
	}
	if err != nil {
		return fmt.Errorf("reversal: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Reversal, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, original_transaction_id, transaction_type, user_id, user_role,
       original_amount, reversal_amount, reason, status,
       original_ledger_id, reversal_ledger_id, admin_id, ip_address,
       remarks, metadata, created_at, completed_at
FROM reversals WHERE id = $1`, id)
	return scanReversal(row.Scan)
}

func (r *PostgresRepo) MarkCompleted(ctx context.Context, id, reversalLedgerID string, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE reversals
SET status = 'completed', reversal_ledger_id = $2, completed_at = $3
WHERE id = $1 AND status = 'processing'`, id, reversalLedgerID, completedAt)
	if err != nil {
		return fmt.Errorf("reversal: mark completed: %w", err)
	}
	return requireOneRow(res, id)
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, remarks string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE reversals
SET status = 'failed', remarks = $2
WHERE id = $1 AND status = 'processing'`, id, remarks)
	if err != nil {
		return fmt.Errorf("reversal: mark failed: %w", err)
	}
	return requireOneRow(res, id)
}

func (r *PostgresRepo) StuckProcessing(ctx context.Context, before time.Time) ([]Reversal, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, original_transaction_id, transaction_type, user_id, user_role,
       original_amount, reversal_amount, reason, status,
       original_ledger_id, reversal_ledger_id, admin_id, ip_address,
       remarks, metadata, created_at, completed_at
FROM reversals
WHERE status = 'processing' AND created_at < $1
ORDER BY created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("reversal: query stuck: %w", err)
	}
	defer rows.Close()

	var out []Reversal
	for rows.Next() {
		rev, err := scanReversal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

func scanReversal(scan func(dest ...any) error) (Reversal, error) {
	var (
		rev         Reversal
		meta        []byte
		completedAt sql.NullTime
	)
	err := scan(&rev.ID, &rev.OriginalTransactionID, &rev.TransactionType, &rev.UserID, &rev.UserRole,
		&rev.OriginalAmount, &rev.ReversalAmount, &rev.Reason, &rev.Status,
		&rev.OriginalLedgerID, &rev.ReversalLedgerID, &rev.AdminID, &rev.IPAddress,
		&rev.Remarks, &meta, &rev.CreatedAt, &completedAt)
	if err != nil {
		return Reversal{}, fmt.Errorf("reversal: scan: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rev.Metadata); err != nil {
			return Reversal{}, fmt.Errorf("reversal: unmarshal metadata: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		rev.CompletedAt = &t
	}
	return rev, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reversal: rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("reversal: %s not in processing state", id)
	}
	return nil
}
