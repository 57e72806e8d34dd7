package scheme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paynet-platform/pkg/utils"
)

// PostgresRepo backs the resolution engine with the schemes tables.
//
// Schema (DDL managed by migrations):
//
//	CREATE TABLE schemes (
//	    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    name            TEXT NOT NULL,
//	    description     TEXT NOT NULL DEFAULT '',
//	    scheme_type     TEXT NOT NULL,
//	    service_scope   TEXT NOT NULL DEFAULT 'all',
//	    priority        INT  NOT NULL DEFAULT 0,
//	    created_by_id   TEXT NOT NULL DEFAULT '',
//	    created_by_role TEXT NOT NULL DEFAULT '',
//	    status          TEXT NOT NULL DEFAULT 'active',
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE scheme_mappings (
//	    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    scheme_id        UUID NOT NULL REFERENCES schemes(id),
//	    entity_id        TEXT NOT NULL,
//	    entity_role      TEXT NOT NULL,
//	    assigned_by_id   TEXT NOT NULL DEFAULT '',
//	    assigned_by_role TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL DEFAULT 'active',
//	    priority         INT  NOT NULL DEFAULT 0,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE UNIQUE INDEX scheme_mappings_one_active
//	    ON scheme_mappings (entity_id) WHERE status = 'active';
//
// Slab tables (bbps_commission_slabs, payout_charge_slabs, mdr_rates) carry
// the columns of the corresponding model types; dimension columns default to
// '' meaning wildcard.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const selectScheme = `
SELECT id, name, description, scheme_type, service_scope, priority,
       created_by_id, created_by_role, status, created_at
FROM schemes`

func scanScheme(row *sql.Row) (Scheme, bool, error) {
	var s Scheme
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.SchemeType, &s.ServiceScope,
		&s.Priority, &s.CreatedByID, &s.CreatedByRole, &s.Status, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Scheme{}, false, nil
	}
	if err != nil {
		return Scheme{}, false, fmt.Errorf("scheme: scan scheme: %w", err)
	}
	return s, true, nil
}

func (r *PostgresRepo) ActiveMapping(ctx context.Context, entityID string) (Mapping, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, scheme_id, entity_id, entity_role, assigned_by_id, assigned_by_role,
       status, priority, created_at
FROM scheme_mappings
WHERE entity_id = $1 AND status = 'active'`, entityID)

	var m Mapping
	err := row.Scan(&m.ID, &m.SchemeID, &m.EntityID, &m.EntityRole,
		&m.AssignedByID, &m.AssignedByRole, &m.Status, &m.Priority, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("scheme: scan mapping: %w", err)
	}
	return m, true, nil
}

func (r *PostgresRepo) GlobalScheme(ctx context.Context) (Scheme, bool, error) {
	row := r.db.QueryRowContext(ctx, selectScheme+`
WHERE scheme_type = 'global' AND status = 'active'
ORDER BY created_at DESC
LIMIT 1`)
	return scanScheme(row)
}

func (r *PostgresRepo) SchemeByID(ctx context.Context, id string) (Scheme, bool, error) {
	row := r.db.QueryRowContext(ctx, selectScheme+` WHERE id = $1`, id)
	return scanScheme(row)
}

func (r *PostgresRepo) BBPSSlabs(ctx context.Context, schemeID string) ([]BBPSCommissionSlab, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, scheme_id, category, min_amount, max_amount,
       retailer_charge, retailer_charge_type,
       retailer_commission, retailer_commission_type,
       distributor_commission, distributor_commission_type,
       md_commission, md_commission_type,
       company_charge, company_charge_type,
       status, created_at
FROM bbps_commission_slabs
WHERE scheme_id = $1`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("scheme: query bbps slabs: %w", err)
	}
	defer rows.Close()

	var out []BBPSCommissionSlab
	for rows.Next() {
		var s BBPSCommissionSlab
		if err := rows.Scan(&s.ID, &s.SchemeID, &s.Category, &s.MinAmount, &s.MaxAmount,
			&s.RetailerCharge, &s.RetailerChargeType,
			&s.RetailerCommission, &s.RetailerCommissionType,
			&s.DistributorCommission, &s.DistributorCommissionType,
			&s.MDCommission, &s.MDCommissionType,
			&s.CompanyCharge, &s.CompanyChargeType,
			&s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheme: scan bbps slab: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) PayoutSlabs(ctx context.Context, schemeID string) ([]PayoutChargeSlab, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, scheme_id, transfer_mode, min_amount, max_amount,
       retailer_charge, retailer_charge_type,
       retailer_commission, retailer_commission_type,
       distributor_commission, distributor_commission_type,
       md_commission, md_commission_type,
       company_charge, company_charge_type,
       status, created_at
FROM payout_charge_slabs
WHERE scheme_id = $1`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("scheme: query payout slabs: %w", err)
	}
	defer rows.Close()

	var out []PayoutChargeSlab
	for rows.Next() {
		var s PayoutChargeSlab
		if err := rows.Scan(&s.ID, &s.SchemeID, &s.TransferMode, &s.MinAmount, &s.MaxAmount,
			&s.RetailerCharge, &s.RetailerChargeType,
			&s.RetailerCommission, &s.RetailerCommissionType,
			&s.DistributorCommission, &s.DistributorCommissionType,
			&s.MDCommission, &s.MDCommissionType,
			&s.CompanyCharge, &s.CompanyChargeType,
			&s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheme: scan payout slab: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MDRRates(ctx context.Context, schemeID string) ([]MDRRate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, scheme_id, mode, card_type, brand_type, card_classification,
       retailer_mdr_t1, retailer_mdr_t0,
       distributor_mdr_t1, distributor_mdr_t0,
       md_mdr_t1, md_mdr_t0,
       status, created_at
FROM mdr_rates
WHERE scheme_id = $1`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("scheme: query mdr rates: %w", err)
	}
	defer rows.Close()

	var out []MDRRate
	for rows.Next() {
		var m MDRRate
		if err := rows.Scan(&m.ID, &m.SchemeID, &m.Mode, &m.CardType, &m.BrandType, &m.CardClassification,
			&m.RetailerMDRT1, &m.RetailerMDRT0,
			&m.DistributorMDRT1, &m.DistributorMDRT0,
			&m.MDMDRT1, &m.MDMDRT0,
			&m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheme: scan mdr rate: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AssignMapping deactivates the entity's current active mapping and inserts
// the new one in a single transaction. The partial unique index on
// (entity_id) WHERE status='active' backs the invariant.
func (r *PostgresRepo) AssignMapping(ctx context.Context, schemeID, entityID, entityRole, byID, byRole string) (Mapping, error) {
	var m Mapping
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE scheme_mappings SET status = 'inactive'
WHERE entity_id = $1 AND status = 'active'`, entityID); err != nil {
			return fmt.Errorf("scheme: deactivate mapping: %w", err)
		}
		row := tx.QueryRowContext(ctx, `
INSERT INTO scheme_mappings (scheme_id, entity_id, entity_role, assigned_by_id, assigned_by_role, status)
VALUES ($1, $2, $3, $4, $5, 'active')
RETURNING id, scheme_id, entity_id, entity_role, assigned_by_id, assigned_by_role, status, priority, created_at`,
			schemeID, entityID, entityRole, byID, byRole)
		return row.Scan(&m.ID, &m.SchemeID, &m.EntityID, &m.EntityRole,
			&m.AssignedByID, &m.AssignedByRole, &m.Status, &m.Priority, &m.CreatedAt)
	})
	if err != nil {
		return Mapping{}, err
	}
	return m, nil
}
