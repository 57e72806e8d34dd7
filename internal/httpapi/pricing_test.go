package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"paynet-platform/internal/scheme"
)

func newPricingEnv(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := scheme.NewMemoryRepo()
	repo.Schemes = []scheme.Scheme{
		{ID: "sch-global", SchemeType: scheme.SchemeTypeGlobal, ServiceScope: scheme.ScopeAll, Status: scheme.StatusActive},
	}
	repo.BBPS = []scheme.BBPSCommissionSlab{
		{
			ID: "slab-any", SchemeID: "sch-global",
			MinAmount: dec("0"), MaxAmount: dec("999999999"),
			RetailerCharge: dec("5"), RetailerChargeType: scheme.RateFlat,
			Status: scheme.StatusActive,
		},
		{
			ID: "slab-elec", SchemeID: "sch-global", Category: "Electricity",
			MinAmount: dec("0"), MaxAmount: dec("1000"),
			RetailerCharge: dec("2"), RetailerChargeType: scheme.RatePercentage,
			Status: scheme.StatusActive,
		},
	}

	h := Handlers{Scheme: scheme.NewService(repo)}
	r := gin.New()
	r.POST("/v1/pricing/quote", h.Quote)
	return r
}

func TestQuote_BBPSCategorySlabWins(t *testing.T) {
	r := newPricingEnv(t)

	w := postJSON(r, "/v1/pricing/quote", gin.H{
		"service_type": "bbps",
		"entity_id":    "ret-1",
		"category":     "Electricity",
		"amount":       "500",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SlabID    string `json:"slab_id"`
		Breakdown struct {
			RetailerCharge struct {
				Amount decimal.Decimal `json:"amount"`
			} `json:"retailer_charge"`
		} `json:"breakdown"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SlabID != "slab-elec" {
		t.Fatalf("slab %s, want the category-specific one", resp.SlabID)
	}
	// 2% of 500, not the 5 flat fallback.
	if !resp.Breakdown.RetailerCharge.Amount.Equal(dec("10.00")) {
		t.Fatalf("charge %s, want 10.00", resp.Breakdown.RetailerCharge.Amount)
	}
}

func TestQuote_NoMatchingSlabRejected(t *testing.T) {
	r := newPricingEnv(t)

	w := postJSON(r, "/v1/pricing/quote", gin.H{
		"service_type":  "payout",
		"entity_id":     "ret-1",
		"transfer_mode": "IMPS",
		"amount":        "500",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", w.Code, w.Body.String())
	}
}

func TestQuote_BadAmount(t *testing.T) {
	r := newPricingEnv(t)

	w := postJSON(r, "/v1/pricing/quote", gin.H{
		"service_type": "bbps",
		"entity_id":    "ret-1",
		"amount":       "lots",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}
