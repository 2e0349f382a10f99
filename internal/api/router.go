package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/textmock/textmock-server/internal/api/handler"
	"github.com/textmock/textmock-server/internal/api/middleware"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	jwtSecret string,
	walletHandler *handler.WalletHandler,
	scenarioHandler *handler.ScenarioHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(r)

	// API v1 endpoints, all behind authentication
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(logger, jwtSecret))
	{
		// Wallet operations
		wallet := v1.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/purchase", walletHandler.BuyTokens)
			wallet.GET("/transactions", walletHandler.GetTransactions)
			wallet.GET("/audit", walletHandler.AuditBalance)
		}

		// Scenario operations
		scenarios := v1.Group("/scenarios")
		{
			scenarios.POST("", scenarioHandler.Create)
			scenarios.GET("", scenarioHandler.List)
			scenarios.GET("/:id", scenarioHandler.GetByID)
			scenarios.PUT("/:id", scenarioHandler.Update)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
