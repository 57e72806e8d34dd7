package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paynet-platform/internal/commission"
	"paynet-platform/internal/scheme"
	"paynet-platform/internal/transaction"
)

type postCommissionsRequest struct {
	TransactionID   string `json:"transaction_id"`
	TransactionType string `json:"transaction_type"`
	ServiceType     string `json:"service_type"`

	Category     string `json:"category,omitempty"`
	TransferMode string `json:"transfer_mode,omitempty"`

	Mode               string `json:"mode,omitempty"`
	CardType           string `json:"card_type,omitempty"`
	BrandType          string `json:"brand_type,omitempty"`
	CardClassification string `json:"card_classification,omitempty"`
	T0                 bool   `json:"t0,omitempty"`
}

// PostCommissions prices a recorded transaction and fans the result out
// across the partner chain. The transaction flows call this after the
// customer leg succeeds; operators call it to finish a partially posted
// fan-out.
func (h Handlers) PostCommissions(c *gin.Context) {
	var req postCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.TransactionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transaction_id required"})
		return
	}
	store, ok := h.Stores.Lookup(transaction.Type(req.TransactionType))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported transaction_type"})
		return
	}

	ctx := c.Request.Context()
	rec, err := store.Get(ctx, req.TransactionID)
	if errors.Is(err, transaction.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "transaction lookup failed"})
		return
	}

	var breakdown commission.Breakdown
	switch req.ServiceType {
	case "bbps":
		slab, err := h.Scheme.ResolveBBPS(ctx, rec.OwnerUserID, req.Category, rec.Amount)
		if err != nil {
			h.quoteError(c, err)
			return
		}
		if breakdown, err = commission.ComputeBBPS(rec.Amount, slab); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	case "payout":
		slab, err := h.Scheme.ResolvePayout(ctx, rec.OwnerUserID, req.TransferMode, rec.Amount)
		if err != nil {
			h.quoteError(c, err)
			return
		}
		if breakdown, err = commission.ComputePayout(rec.Amount, slab); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	case "mdr":
		resolved, err := h.Scheme.ResolveMDR(ctx, rec.OwnerUserID, scheme.MDRDimension{
			Mode:               scheme.MDRMode(req.Mode),
			CardType:           req.CardType,
			BrandType:          req.BrandType,
			CardClassification: req.CardClassification,
		})
		if err != nil {
			h.quoteError(c, err)
			return
		}
		if breakdown, err = commission.ComputeMDR(rec.Amount, resolved, req.T0); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing computation failed"})
			return
		}
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "service_type must be bbps, payout or mdr"})
		return
	}

	res, err := h.Fanout.Post(ctx, rec, breakdown)
	if err != nil {
		// A partial fan-out still committed entries; the caller needs them
		// for reconciliation, so they ride along with the error.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":    "fan-out posting failed",
			"partial":  res.Partial,
			"postings": res.Postings,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"postings": res.Postings,
	})
}
