package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"paynet-platform/internal/auth"
	"paynet-platform/internal/fanout"
	"paynet-platform/internal/ledger"
	"paynet-platform/internal/reversal"
	"paynet-platform/internal/scheme"
	"paynet-platform/internal/transaction"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

// EntryLister serves statement reads; it sits outside the two-operation
// Ledger primitive on purpose.
type EntryLister interface {
	ListEntries(ctx context.Context, userID string, walletType ledger.WalletType, limit int) ([]ledger.Entry, error)
}

type Handlers struct {
	Auth     *auth.Manager
	Ledger   ledger.Ledger
	Entries  EntryLister
	Scheme   *scheme.Service
	Fanout   *fanout.Service
	Stores   transaction.Registry
	Reversal *reversal.Service

	// StuckThreshold ages the stuck-reversal listing.
	StuckThreshold time.Duration
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Wallet ---

func (h Handlers) GetWalletBalance(c *gin.Context) {
	userID := c.Param("user_id")
	walletType := ledger.WalletType(c.Param("wallet_type"))
	if walletType != ledger.WalletPrimary && walletType != ledger.WalletAEPS {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "wallet_type must be primary or aeps"})
		return
	}
	bal, err := h.Ledger.GetBalance(c.Request.Context(), userID, walletType)
	if errors.Is(err, ledger.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"wallet_type": walletType,
		"balance":     bal,
	})
}

// GetWalletLedger returns the account's entries oldest first.
func (h Handlers) GetWalletLedger(c *gin.Context) {
	userID := c.Param("user_id")
	walletType := ledger.WalletType(c.Param("wallet_type"))
	if walletType != ledger.WalletPrimary && walletType != ledger.WalletAEPS {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "wallet_type must be primary or aeps"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.Entries.ListEntries(c.Request.Context(), userID, walletType, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ledger lookup failed"})
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- Reversals ---

type createReversalRequest struct {
	TransactionID   string `json:"transaction_id"`
	TransactionType string `json:"transaction_type"`
	Reason          string `json:"reason"`
	Remarks         string `json:"remarks,omitempty"`
}

type variantReversalRequest struct {
	TransactionID string `json:"transaction_id"`
	SettlementID  string `json:"settlement_id,omitempty"`
	Reason        string `json:"reason"`
	Remarks       string `json:"remarks,omitempty"`
}

// CreateReversal is the generic admin reversal over any transaction type.
func (h Handlers) CreateReversal(c *gin.Context) {
	var req createReversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	h.runReversal(c, reversal.Request{
		TransactionID:   req.TransactionID,
		Variant:         reversal.VariantGeneric,
		TransactionType: transaction.Type(req.TransactionType),
		Reason:          req.Reason,
		Remarks:         req.Remarks,
	})
}

func (h Handlers) BBPSFailureReversal(c *gin.Context) {
	h.variantReversal(c, reversal.VariantBBPSFailure)
}

func (h Handlers) SettlementFailureReversal(c *gin.Context) {
	h.variantReversal(c, reversal.VariantSettlementFailure)
}

func (h Handlers) AEPSReconciliationReversal(c *gin.Context) {
	h.variantReversal(c, reversal.VariantAEPSReconciliation)
}

func (h Handlers) variantReversal(c *gin.Context, v reversal.Variant) {
	var req variantReversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := req.TransactionID
	if id == "" {
		id = req.SettlementID
	}
	h.runReversal(c, reversal.Request{
		TransactionID: id,
		Variant:       v,
		Reason:        req.Reason,
		Remarks:       req.Remarks,
	})
}

func (h Handlers) runReversal(c *gin.Context, req reversal.Request) {
	adminID, err := auth.UserID(c.Request.Context())
	if err != nil || adminID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin identity required"})
		return
	}
	req.AdminID = adminID
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	res, err := h.Reversal.Create(c.Request.Context(), req)
	if err != nil {
		status, msg := reversalError(err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"reversal_id":    res.Reversal.ID,
		"before_balance": res.BeforeBalance,
		"after_balance":  res.AfterBalance,
		"amount":         res.Amount,
	})
}

// reversalError maps service errors onto the API contract: validation,
// conflicts and failed preconditions are 400 with no mutation, missing
// transactions 404, ledger failures 500.
func reversalError(err error) (int, string) {
	switch {
	case errors.Is(err, reversal.ErrAlreadyReversed):
		return http.StatusBadRequest, "Transaction already reversed"
	case errors.Is(err, reversal.ErrPreconditionFailed):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, reversal.ErrInProgress):
		return http.StatusBadRequest, "Reversal already in progress"
	case errors.Is(err, reversal.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, reversal.ErrNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, reversal.ErrLedgerPosting):
		return http.StatusInternalServerError, "Reversal failed while posting refund"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// StuckReversals lists processing reversals past the configured threshold.
func (h Handlers) StuckReversals(c *gin.Context) {
	stuck, err := h.Reversal.StuckProcessing(c.Request.Context(), h.StuckThreshold)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	if stuck == nil {
		stuck = []reversal.Reversal{}
	}
	c.JSON(http.StatusOK, gin.H{"reversals": stuck})
}
