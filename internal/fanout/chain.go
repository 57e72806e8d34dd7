package fanout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Chain is the upward partner hierarchy of one retailer. Either parent may be
// empty when the retailer hangs directly off the company.
type Chain struct {
	DistributorID       string
	MasterDistributorID string
}

type ChainResolver interface {
	ParentChain(ctx context.Context, userID string) (Chain, error)
}

var ErrUserNotFound = errors.New("fanout: user not found")

// PostgresChainResolver walks the users table upward. The hierarchy is at
// most retailer -> distributor -> master_distributor, so two hops bound the
// walk.
type PostgresChainResolver struct {
	db *sql.DB
}

func NewPostgresChainResolver(db *sql.DB) *PostgresChainResolver {
	return &PostgresChainResolver{db: db}
}

func (r *PostgresChainResolver) ParentChain(ctx context.Context, userID string) (Chain, error) {
	var chain Chain
	current := userID
	for hop := 0; hop < 3 && current != ""; hop++ {
		var parentID, parentRole sql.NullString
		err := r.db.QueryRowContext(ctx, `
SELECT p.id, p.role
FROM users u
LEFT JOIN users p ON p.id = u.parent_id
WHERE u.id = $1`, current).Scan(&parentID, &parentRole)
		if errors.Is(err, sql.ErrNoRows) {
			if hop == 0 {
				return Chain{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
			}
			break
		}
		if err != nil {
			return Chain{}, fmt.Errorf("fanout: resolve chain: %w", err)
		}
		if !parentID.Valid {
			break
		}
		switch parentRole.String {
		case "distributor":
			chain.DistributorID = parentID.String
		case "master_distributor":
			chain.MasterDistributorID = parentID.String
		}
		current = parentID.String
	}
	return chain, nil
}

// MemoryChainResolver serves a fixed hierarchy for tests.
type MemoryChainResolver struct {
	mu     sync.Mutex
	chains map[string]Chain
}

func NewMemoryChainResolver() *MemoryChainResolver {
	return &MemoryChainResolver{chains: make(map[string]Chain)}
}

func (r *MemoryChainResolver) Set(userID string, c Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[userID] = c
}

func (r *MemoryChainResolver) ParentChain(ctx context.Context, userID string) (Chain, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chains[userID]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return c, nil
}
