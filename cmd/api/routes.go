package main

import (
	"github.com/gin-gonic/gin"

	"paynet-platform/internal/httpapi"
	"paynet-platform/internal/rbac"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// WALLET routes: partners may read their own balances; privileged
		// roles may read anyone's. Ownership checks live in middleware.
		wallets := v1.Group("/wallets")
		{
			wallets.GET("/:user_id/:wallet_type/balance", rbac.RequireSelfOrPrivileged("user_id"), h.GetWalletBalance)
			wallets.GET("/:user_id/:wallet_type/ledger", rbac.RequireSelfOrPrivileged("user_id"), h.GetWalletLedger)
		}

		// PRICING: read-only slab resolution, open to any authenticated
		// partner for their own entity via the admin surface.
		v1.POST("/pricing/quote", h.Quote)

		// COMMISSION posting: the transaction flows call this after the
		// customer leg succeeds; operators re-run it for partial fan-outs.
		v1.POST("/commissions/post", rbac.RequirePrivileged(), h.PostCommissions)

		// REVERSAL routes: privileged roles only. Every endpoint is one
		// variant of the same state machine.
		reversals := v1.Group("/reversals")
		reversals.Use(rbac.RequirePrivileged())
		{
			reversals.POST("", h.CreateReversal)
			reversals.POST("/bbps-failure", h.BBPSFailureReversal)
			reversals.POST("/settlement-failure", h.SettlementFailureReversal)
			reversals.POST("/aeps-reconciliation", h.AEPSReconciliationReversal)
			reversals.GET("/stuck", h.StuckReversals)
		}
	}
}
