package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Gauge endpoints (public read access)
		v1.GET("/gauges", handler.ListGauges)
		v1.GET("/gauges/:address", handler.GetGauge)

		// Gauge registration (requires authentication)
		v1.POST("/gauges", middleware.Auth(authCfg), handler.AddGauge)
		v1.DELETE("/gauges/:address", middleware.Auth(authCfg), handler.RemoveGauge)

		// Ledger configuration (requires authentication for writes)
		v1.GET("/config/max-gauges", handler.GetMaxGauges)
		v1.PUT("/config/max-gauges", middleware.Auth(authCfg), handler.SetMaxGauges)
		v1.PUT("/users/:address/exemption", middleware.Auth(authCfg), handler.SetExemption)

		// Weight endpoints (open, weight changes bind to the caller-named user)
		v1.GET("/users/:address/weights", handler.GetUserWeights)
		v1.POST("/users/:address/weights/increment", handler.IncrementWeights)
		v1.POST("/users/:address/weights/decrement", handler.DecrementWeights)

		// Loss endpoints. Reporting requires authentication; applying is
		// open so anyone can unblock a stale position.
		v1.POST("/gauges/:address/loss", middleware.Auth(authCfg), handler.ReportLoss)
		v1.POST("/gauges/:address/loss/apply", handler.ApplyLoss)

		// Allocation endpoint (public read access)
		v1.GET("/allocations", handler.GetAllocation)

		// Balance endpoints. Mint and burn require authentication.
		v1.GET("/balances/:address", handler.GetBalance)
		v1.POST("/balances/mint", middleware.Auth(authCfg), handler.Mint)
		v1.POST("/balances/burn", middleware.Auth(authCfg), handler.Burn)
		v1.POST("/balances/transfer", handler.Transfer)
		v1.POST("/balances/approve", handler.Approve)
	}
}
