package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore reads one transaction-type table. Every table carries the
// shared columns Record needs; type-specific columns are ignored here.
//
// Table names are fixed per type rather than interpolated from input.
var tableByType = map[Type]string{
	TypeBBPS:       "bbps_transactions",
	TypeAEPS:       "aeps_transactions",
	TypeSettlement: "settlement_transactions",
	TypePOS:        "pos_transactions",
	TypeAdmin:      "admin_transfers",
}

type PostgresStore struct {
	db      *sql.DB
	typ     Type
	table   string
	selects string
}

func NewPostgresStore(db *sql.DB, typ Type) (*PostgresStore, error) {
	table, ok := tableByType[typ]
	if !ok {
		return nil, fmt.Errorf("transaction: no table for type %q", typ)
	}
	return &PostgresStore{
		db:    db,
		typ:   typ,
		table: table,
		selects: fmt.Sprintf(`
SELECT id, owner_user_id, owner_role, amount, wallet_type, wallet_debit_id, status, created_at
FROM %s`, table),
	}, nil
}

// NewPostgresRegistry builds a Registry covering every transaction type.
func NewPostgresRegistry(db *sql.DB) (Registry, error) {
	reg := make(Registry, len(tableByType))
	for typ := range tableByType {
		st, err := NewPostgresStore(db, typ)
		if err != nil {
			return nil, err
		}
		reg[typ] = st
	}
	return reg, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.selects+` WHERE id = $1`, id)

	rec := Record{Type: s.typ}
	err := row.Scan(&rec.ID, &rec.OwnerUserID, &rec.OwnerRole, &rec.Amount,
		&rec.WalletType, &rec.WalletDebitID, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("transaction: scan %s: %w", s.table, err)
	}
	return rec, nil
}

// MarkReversed flips status with a compare-and-swap; zero rows affected means
// either the row is gone or someone else already reversed it.
func (s *PostgresStore) MarkReversed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = 'reversed' WHERE id = $1 AND status <> 'reversed'`, s.table), id)
	if err != nil {
		return fmt.Errorf("transaction: mark reversed %s: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transaction: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return ErrAlreadyReversed
}
