package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"paynet-platform/internal/commission"
	"paynet-platform/internal/scheme"
)

type quoteRequest struct {
	ServiceType string `json:"service_type"`
	EntityID    string `json:"entity_id"`
	Amount      string `json:"amount"`

	// BBPS
	Category string `json:"category,omitempty"`

	// Payout
	TransferMode string `json:"transfer_mode,omitempty"`

	// MDR
	Mode               string `json:"mode,omitempty"`
	CardType           string `json:"card_type,omitempty"`
	BrandType          string `json:"brand_type,omitempty"`
	CardClassification string `json:"card_classification,omitempty"`
	T0                 bool   `json:"t0,omitempty"`
}

// Quote resolves the effective slab for an entity and prices a hypothetical
// transaction against it. Read-only: nothing is posted.
func (h Handlers) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative decimal"})
		return
	}

	ctx := c.Request.Context()
	var (
		breakdown commission.Breakdown
		slabID    string
	)
	switch req.ServiceType {
	case "bbps":
		slab, err := h.Scheme.ResolveBBPS(ctx, req.EntityID, req.Category, amount)
		if err != nil {
			h.quoteError(c, err)
			return
		}
		slabID = slab.ID
		breakdown, err = commission.ComputeBBPS(amount, slab)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	case "payout":
		slab, err := h.Scheme.ResolvePayout(ctx, req.EntityID, req.TransferMode, amount)
		if err != nil {
			h.quoteError(c, err)
			return
		}
		slabID = slab.ID
		breakdown, err = commission.ComputePayout(amount, slab)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	case "mdr":
		resolved, err := h.Scheme.ResolveMDR(ctx, req.EntityID, scheme.MDRDimension{
			Mode:               scheme.MDRMode(req.Mode),
			CardType:           req.CardType,
			BrandType:          req.BrandType,
			CardClassification: req.CardClassification,
		})
		if err != nil {
			h.quoteError(c, err)
			return
		}
		slabID = resolved.RateID
		breakdown, err = commission.ComputeMDR(amount, resolved, req.T0)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "service_type must be bbps, payout or mdr"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slab_id":   slabID,
		"breakdown": breakdown,
	})
}

// quoteError maps resolution failures: a missing slab is fatal for pricing
// and must reach the caller as an explicit rejection, never a zero charge.
func (h Handlers) quoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheme.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid pricing request"})
	case errors.Is(err, scheme.ErrNoScheme), errors.Is(err, scheme.ErrNoMatchingSlab):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing resolution failed"})
	}
}
