package scheme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Repository abstracts scheme/slab persistence.
// The resolution engine only reads; slab CRUD belongs to the admin surface.
type Repository interface {
	ActiveMapping(ctx context.Context, entityID string) (Mapping, bool, error)
	GlobalScheme(ctx context.Context) (Scheme, bool, error)
	SchemeByID(ctx context.Context, id string) (Scheme, bool, error)

	BBPSSlabs(ctx context.Context, schemeID string) ([]BBPSCommissionSlab, error)
	PayoutSlabs(ctx context.Context, schemeID string) ([]PayoutChargeSlab, error)
	MDRRates(ctx context.Context, schemeID string) ([]MDRRate, error)
}

var (
	ErrNoScheme       = errors.New("scheme: no scheme configured for entity")
	ErrNoMatchingSlab = errors.New("scheme: no matching slab")
	ErrInvalidRequest = errors.New("scheme: invalid resolution request")
)

// Service resolves the effective scheme and rate slab for a transaction.
//
// Resolution contract:
//  1. The entity's single active mapping wins; otherwise the global scheme.
//  2. Slabs are filtered by amount range and dimension (exact or wildcard).
//  3. Most specific wins: exact dimension over wildcard, then narrower
//     amount range, then most recently created. Identical inputs always
//     resolve to the same slab.
//
// No matching slab is fatal for the transaction pricing itself: callers must
// reject with a clear reason, never silently charge zero.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ResolveBBPS(ctx context.Context, entityID, category string, amount decimal.Decimal) (BBPSCommissionSlab, error) {
	if entityID == "" || amount.IsNegative() {
		return BBPSCommissionSlab{}, ErrInvalidRequest
	}

	sch, err := s.effectiveScheme(ctx, entityID, ScopeBBPS)
	if err != nil {
		return BBPSCommissionSlab{}, err
	}

	rows, err := s.repo.BBPSSlabs(ctx, sch.ID)
	if err != nil {
		return BBPSCommissionSlab{}, err
	}

	var best BBPSCommissionSlab
	var bestRank slabRank
	found := false
	for _, r := range rows {
		if r.Status != StatusActive {
			continue
		}
		if !matchDimension(r.Category, category) {
			continue
		}
		if !inRange(amount, r.MinAmount, r.MaxAmount) {
			continue
		}
		rank := slabRank{
			exact:   r.Category != "",
			width:   r.MaxAmount.Sub(r.MinAmount),
			created: r.CreatedAt,
			id:      r.ID,
		}
		if !found || rank.beats(bestRank) {
			best, bestRank, found = r, rank, true
		}
	}
	if !found {
		return BBPSCommissionSlab{}, fmt.Errorf("%w: scheme=%s category=%q amount=%s", ErrNoMatchingSlab, sch.ID, category, amount)
	}
	return best, nil
}

func (s *Service) ResolvePayout(ctx context.Context, entityID, transferMode string, amount decimal.Decimal) (PayoutChargeSlab, error) {
	if entityID == "" || amount.IsNegative() {
		return PayoutChargeSlab{}, ErrInvalidRequest
	}

	sch, err := s.effectiveScheme(ctx, entityID, ScopePayout)
	if err != nil {
		return PayoutChargeSlab{}, err
	}

	rows, err := s.repo.PayoutSlabs(ctx, sch.ID)
	if err != nil {
		return PayoutChargeSlab{}, err
	}

	var best PayoutChargeSlab
	var bestRank slabRank
	found := false
	for _, r := range rows {
		if r.Status != StatusActive {
			continue
		}
		if !matchDimension(r.TransferMode, transferMode) {
			continue
		}
		if !inRange(amount, r.MinAmount, r.MaxAmount) {
			continue
		}
		rank := slabRank{
			exact:   r.TransferMode != "",
			width:   r.MaxAmount.Sub(r.MinAmount),
			created: r.CreatedAt,
			id:      r.ID,
		}
		if !found || rank.beats(bestRank) {
			best, bestRank, found = r, rank, true
		}
	}
	if !found {
		return PayoutChargeSlab{}, fmt.Errorf("%w: scheme=%s mode=%q amount=%s", ErrNoMatchingSlab, sch.ID, transferMode, amount)
	}
	return best, nil
}

// ResolveMDR picks the most specific active MDR row for the dimension and
// applies the T0 product rule: a zero T0 next to a non-zero T1 means
// "T1 plus one percentage point", not a free T0 settlement.
func (s *Service) ResolveMDR(ctx context.Context, entityID string, dim MDRDimension) (ResolvedMDR, error) {
	if entityID == "" || dim.Mode == "" {
		return ResolvedMDR{}, ErrInvalidRequest
	}

	sch, err := s.effectiveScheme(ctx, entityID, ScopeMDR)
	if err != nil {
		return ResolvedMDR{}, err
	}

	rows, err := s.repo.MDRRates(ctx, sch.ID)
	if err != nil {
		return ResolvedMDR{}, err
	}

	var best MDRRate
	bestSpec := -1
	var bestCreated time.Time
	bestID := ""
	found := false
	for _, r := range rows {
		if r.Status != StatusActive {
			continue
		}
		if r.Mode != dim.Mode {
			continue
		}
		spec, ok := mdrSpecificity(r, dim)
		if !ok {
			continue
		}
		if !found ||
			spec > bestSpec ||
			(spec == bestSpec && r.CreatedAt.After(bestCreated)) ||
			(spec == bestSpec && r.CreatedAt.Equal(bestCreated) && strings.Compare(r.ID, bestID) > 0) {
			best, bestSpec, bestCreated, bestID, found = r, spec, r.CreatedAt, r.ID, true
		}
	}
	if !found {
		return ResolvedMDR{}, fmt.Errorf("%w: scheme=%s mode=%s card=%q brand=%q class=%q",
			ErrNoMatchingSlab, sch.ID, dim.Mode, dim.CardType, dim.BrandType, dim.CardClassification)
	}

	return ResolvedMDR{
		SchemeID:    sch.ID,
		RateID:      best.ID,
		Retailer:    applyT0Fallback(best.RetailerMDRT1, best.RetailerMDRT0),
		Distributor: applyT0Fallback(best.DistributorMDRT1, best.DistributorMDRT0),
		MD:          applyT0Fallback(best.MDMDRT1, best.MDMDRT0),
	}, nil
}

// effectiveScheme yields exactly one scheme id for an entity: its active
// mapping if the mapped scheme covers the service, else the global scheme.
func (s *Service) effectiveScheme(ctx context.Context, entityID string, scope ServiceScope) (Scheme, error) {
	m, ok, err := s.repo.ActiveMapping(ctx, entityID)
	if err != nil {
		return Scheme{}, err
	}
	if ok {
		sch, ok, err := s.repo.SchemeByID(ctx, m.SchemeID)
		if err != nil {
			return Scheme{}, err
		}
		if ok && sch.Status == StatusActive && scopeCovers(sch.ServiceScope, scope) {
			return sch, nil
		}
		// Mapped scheme is inactive or out of scope for this service; fall
		// through to the global scheme rather than failing the transaction.
	}

	g, ok, err := s.repo.GlobalScheme(ctx)
	if err != nil {
		return Scheme{}, err
	}
	if !ok {
		return Scheme{}, ErrNoScheme
	}
	return g, nil
}

func scopeCovers(have, want ServiceScope) bool {
	return have == ScopeAll || have == want
}

func matchDimension(slabValue, want string) bool {
	// "" on the slab is a wildcard.
	return slabValue == "" || slabValue == want
}

func inRange(amount, min, max decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(min) && amount.LessThanOrEqual(max)
}

// slabRank orders candidate slabs; beats() is a strict total order over the
// candidates so resolution is deterministic for identical inputs.
type slabRank struct {
	exact   bool
	width   decimal.Decimal
	created time.Time
	id      string
}

func (a slabRank) beats(b slabRank) bool {
	if a.exact != b.exact {
		return a.exact
	}
	if !a.width.Equal(b.width) {
		return a.width.LessThan(b.width)
	}
	if !a.created.Equal(b.created) {
		return a.created.After(b.created)
	}
	return strings.Compare(a.id, b.id) > 0
}

// mdrSpecificity counts exact dimension matches; ok=false when any populated
// slab field conflicts with the requested dimension.
func mdrSpecificity(r MDRRate, dim MDRDimension) (int, bool) {
	spec := 0
	pairs := [][2]string{
		{r.CardType, dim.CardType},
		{r.BrandType, dim.BrandType},
		{r.CardClassification, dim.CardClassification},
	}
	for _, p := range pairs {
		if p[0] == "" {
			continue
		}
		if p[0] != p[1] {
			return 0, false
		}
		spec++
	}
	return spec, true
}

var onePercentagePoint = decimal.NewFromInt(1)

func applyT0Fallback(t1, t0 decimal.Decimal) TierRate {
	if t0.IsZero() && t1.IsPositive() {
		t0 = t1.Add(onePercentagePoint)
	}
	return TierRate{T1: t1, T0: t0}
}
