package scheme

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development. It enforces the single-active-mapping invariant the same way
// the Postgres implementation does.
//
// NOTE: This is not intended for production.
type MemoryRepo struct {
	mu sync.Mutex

	Schemes  []Scheme
	Mappings []Mapping
	BBPS     []BBPSCommissionSlab
	Payout   []PayoutChargeSlab
	MDR      []MDRRate

	clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{clock: time.Now}
}

func (r *MemoryRepo) ActiveMapping(ctx context.Context, entityID string) (Mapping, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.Mappings {
		if m.EntityID == entityID && m.Status == StatusActive {
			return m, true, nil
		}
	}
	return Mapping{}, false, nil
}

func (r *MemoryRepo) GlobalScheme(ctx context.Context) (Scheme, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Schemes {
		if s.SchemeType == SchemeTypeGlobal && s.Status == StatusActive {
			return s, true, nil
		}
	}
	return Scheme{}, false, nil
}

func (r *MemoryRepo) SchemeByID(ctx context.Context, id string) (Scheme, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Schemes {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Scheme{}, false, nil
}

func (r *MemoryRepo) BBPSSlabs(ctx context.Context, schemeID string) ([]BBPSCommissionSlab, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BBPSCommissionSlab
	for _, s := range r.BBPS {
		if s.SchemeID == schemeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) PayoutSlabs(ctx context.Context, schemeID string) ([]PayoutChargeSlab, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PayoutChargeSlab
	for _, s := range r.Payout {
		if s.SchemeID == schemeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) MDRRates(ctx context.Context, schemeID string) ([]MDRRate, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MDRRate
	for _, s := range r.MDR {
		if s.SchemeID == schemeID {
			out = append(out, s)
		}
	}
	return out, nil
}

// AssignMapping activates a scheme for an entity, deactivating any previous
// active mapping (the single-active-mapping invariant).
func (r *MemoryRepo) AssignMapping(ctx context.Context, schemeID, entityID, entityRole, byID, byRole string) (Mapping, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Mappings {
		if r.Mappings[i].EntityID == entityID && r.Mappings[i].Status == StatusActive {
			r.Mappings[i].Status = StatusInactive
		}
	}
	m := Mapping{
		ID:             uuid.NewString(),
		SchemeID:       schemeID,
		EntityID:       entityID,
		EntityRole:     entityRole,
		AssignedByID:   byID,
		AssignedByRole: byRole,
		Status:         StatusActive,
		CreatedAt:      r.clock().UTC(),
	}
	r.Mappings = append(r.Mappings, m)
	return m, nil
}
