package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresRepo appends to admin_audit_logs. There are no update or delete
// paths; the table is write-only from this service.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, e Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO admin_audit_logs (
    id, admin_id, action_type, target_user_id, target_user_role,
    wallet_type, amount, before_balance, after_balance,
    ip_address, user_agent, remarks, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		e.ID, e.AdminID, e.ActionType, e.TargetUserID, e.TargetUserRole,
		e.WalletType, e.Amount, e.BeforeBalance, e.AfterBalance,
		e.IPAddress, e.UserAgent, e.Remarks, meta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}
