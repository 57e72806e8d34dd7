package scheme

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedRepo() *MemoryRepo {
	repo := NewMemoryRepo()
	repo.Schemes = []Scheme{
		{ID: "sch-global", Name: "Default", SchemeType: SchemeTypeGlobal, ServiceScope: ScopeAll, Status: StatusActive},
		{ID: "sch-custom", Name: "Gold Retailers", SchemeType: SchemeTypeCustom, ServiceScope: ScopeAll, Status: StatusActive},
	}
	return repo
}

func TestResolveBBPS_CategoryBeatsWildcard(t *testing.T) {
	repo := seedRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.BBPS = []BBPSCommissionSlab{
		{
			ID: "slab-wild", SchemeID: "sch-global",
			MinAmount: dec("0"), MaxAmount: dec("100000"),
			RetailerCharge: dec("5"), RetailerChargeType: RateFlat,
			Status: StatusActive, CreatedAt: base,
		},
		{
			ID: "slab-elec", SchemeID: "sch-global", Category: "Electricity",
			MinAmount: dec("0"), MaxAmount: dec("100000"),
			RetailerCharge: dec("10.00"), RetailerChargeType: RateFlat,
			Status: StatusActive, CreatedAt: base,
		},
	}

	svc := NewService(repo)
	slab, err := svc.ResolveBBPS(context.Background(), "ret-1", "Electricity", dec("2000"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slab.ID != "slab-elec" {
		t.Fatalf("resolved %s, want the category-specific slab", slab.ID)
	}
	if !slab.RetailerCharge.Equal(dec("10.00")) {
		t.Fatalf("charge %s, want 10.00", slab.RetailerCharge)
	}
}

func TestResolveBBPS_NarrowerRangeWins(t *testing.T) {
	repo := seedRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-broad", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("100000"), Status: StatusActive, CreatedAt: base},
		{ID: "slab-tight", SchemeID: "sch-global", MinAmount: dec("1000"), MaxAmount: dec("5000"), Status: StatusActive, CreatedAt: base},
	}

	svc := NewService(repo)
	slab, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("2000"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slab.ID != "slab-tight" {
		t.Fatalf("resolved %s, want the narrower slab", slab.ID)
	}
}

func TestResolveBBPS_Deterministic(t *testing.T) {
	repo := seedRepo()
	// Two slabs with identical specificity, width and creation time: the
	// resolver must still pick the same one every call.
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-a", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("1000"), Status: StatusActive, CreatedAt: ts},
		{ID: "slab-b", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("1000"), Status: StatusActive, CreatedAt: ts},
	}

	svc := NewService(repo)
	first, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("500"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("500"))
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if got.ID != first.ID {
			t.Fatalf("resolution flapped: %s then %s", first.ID, got.ID)
		}
	}
}

func TestResolveBBPS_NoMatchingSlab(t *testing.T) {
	repo := seedRepo()
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-low", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("100"), Status: StatusActive},
	}

	svc := NewService(repo)
	_, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("5000"))
	if !errors.Is(err, ErrNoMatchingSlab) {
		t.Fatalf("expected ErrNoMatchingSlab, got %v", err)
	}
}

func TestResolveBBPS_InactiveSlabIgnored(t *testing.T) {
	repo := seedRepo()
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-off", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("100000"), Status: StatusInactive},
	}

	svc := NewService(repo)
	_, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("100"))
	if !errors.Is(err, ErrNoMatchingSlab) {
		t.Fatalf("expected ErrNoMatchingSlab, got %v", err)
	}
}

func TestEffectiveScheme_MappingWinsOverGlobal(t *testing.T) {
	repo := seedRepo()
	if _, err := repo.AssignMapping(context.Background(), "sch-custom", "ret-1", "retailer", "adm-1", "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-g", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("100000"), Status: StatusActive},
		{ID: "slab-c", SchemeID: "sch-custom", MinAmount: dec("0"), MaxAmount: dec("100000"), Status: StatusActive},
	}

	svc := NewService(repo)
	slab, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("100"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slab.ID != "slab-c" {
		t.Fatalf("resolved %s, want the mapped scheme's slab", slab.ID)
	}

	// An unmapped entity falls back to the global scheme.
	slab, err = svc.ResolveBBPS(context.Background(), "ret-2", "", dec("100"))
	if err != nil {
		t.Fatalf("resolve unmapped: %v", err)
	}
	if slab.ID != "slab-g" {
		t.Fatalf("resolved %s, want the global slab", slab.ID)
	}
}

func TestEffectiveScheme_InactiveMappedSchemeFallsBack(t *testing.T) {
	repo := seedRepo()
	repo.Schemes[1].Status = StatusInactive
	if _, err := repo.AssignMapping(context.Background(), "sch-custom", "ret-1", "retailer", "adm-1", "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	repo.BBPS = []BBPSCommissionSlab{
		{ID: "slab-g", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("100000"), Status: StatusActive},
	}

	svc := NewService(repo)
	slab, err := svc.ResolveBBPS(context.Background(), "ret-1", "", dec("100"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slab.ID != "slab-g" {
		t.Fatalf("resolved %s, want the global slab", slab.ID)
	}
}

func TestAssignMapping_DeactivatesPrevious(t *testing.T) {
	repo := seedRepo()
	ctx := context.Background()

	if _, err := repo.AssignMapping(ctx, "sch-global", "ret-1", "retailer", "adm-1", "admin"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	m2, err := repo.AssignMapping(ctx, "sch-custom", "ret-1", "retailer", "adm-1", "admin")
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}

	active, ok, err := repo.ActiveMapping(ctx, "ret-1")
	if err != nil || !ok {
		t.Fatalf("active mapping: ok=%v err=%v", ok, err)
	}
	if active.ID != m2.ID || active.SchemeID != "sch-custom" {
		t.Fatalf("active mapping is %s scheme=%s, want the latest assignment", active.ID, active.SchemeID)
	}

	count := 0
	for _, m := range repo.Mappings {
		if m.EntityID == "ret-1" && m.Status == StatusActive {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%d active mappings for entity, want 1", count)
	}
}

func TestResolvePayout_ModeBeatsWildcard(t *testing.T) {
	repo := seedRepo()
	repo.Payout = []PayoutChargeSlab{
		{ID: "slab-any", SchemeID: "sch-global", MinAmount: dec("0"), MaxAmount: dec("200000"),
			RetailerCharge: dec("5"), RetailerChargeType: RateFlat, Status: StatusActive},
		{ID: "slab-imps", SchemeID: "sch-global", TransferMode: "IMPS", MinAmount: dec("0"), MaxAmount: dec("200000"),
			RetailerCharge: dec("0.5"), RetailerChargeType: RatePercentage, Status: StatusActive},
	}

	svc := NewService(repo)
	slab, err := svc.ResolvePayout(context.Background(), "ret-1", "IMPS", dec("10000"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slab.ID != "slab-imps" {
		t.Fatalf("resolved %s, want the IMPS slab", slab.ID)
	}
}

func TestResolveMDR_T0Fallback(t *testing.T) {
	repo := seedRepo()
	repo.MDR = []MDRRate{
		{
			ID: "mdr-1", SchemeID: "sch-global", Mode: MDRModeCard,
			RetailerMDRT1: dec("1.5"), RetailerMDRT0: dec("0"),
			DistributorMDRT1: dec("0.2"), DistributorMDRT0: dec("0.3"),
			Status: StatusActive,
		},
	}

	svc := NewService(repo)
	got, err := svc.ResolveMDR(context.Background(), "ret-1", MDRDimension{Mode: MDRModeCard})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// A zero T0 next to a non-zero T1 resolves to T1 + 1.0.
	if !got.Retailer.T0.Equal(dec("2.5")) {
		t.Fatalf("retailer T0 %s, want 2.5", got.Retailer.T0)
	}
	if !got.Retailer.T1.Equal(dec("1.5")) {
		t.Fatalf("retailer T1 %s, want 1.5", got.Retailer.T1)
	}
	// An explicit T0 is never overridden.
	if !got.Distributor.T0.Equal(dec("0.3")) {
		t.Fatalf("distributor T0 %s, want 0.3", got.Distributor.T0)
	}
}

func TestResolveMDR_SpecificRowWins(t *testing.T) {
	repo := seedRepo()
	repo.MDR = []MDRRate{
		{ID: "mdr-any", SchemeID: "sch-global", Mode: MDRModeCard,
			RetailerMDRT1: dec("2.0"), Status: StatusActive},
		{ID: "mdr-visa-credit", SchemeID: "sch-global", Mode: MDRModeCard,
			CardType: "CREDIT", BrandType: "VISA",
			RetailerMDRT1: dec("1.8"), Status: StatusActive},
	}

	svc := NewService(repo)
	got, err := svc.ResolveMDR(context.Background(), "ret-1", MDRDimension{
		Mode: MDRModeCard, CardType: "CREDIT", BrandType: "VISA", CardClassification: "CONSUMER",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.RateID != "mdr-visa-credit" {
		t.Fatalf("resolved %s, want the two-dimension row", got.RateID)
	}

	// A conflicting populated dimension excludes the row entirely.
	got, err = svc.ResolveMDR(context.Background(), "ret-1", MDRDimension{
		Mode: MDRModeCard, CardType: "DEBIT", BrandType: "RUPAY",
	})
	if err != nil {
		t.Fatalf("resolve debit: %v", err)
	}
	if got.RateID != "mdr-any" {
		t.Fatalf("resolved %s, want the wildcard row", got.RateID)
	}
}
