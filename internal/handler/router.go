package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pos_backend/internal/config"
	"pos_backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Store       Pinger
	Catalog     *service.CatalogService
	Checkout    *service.CheckoutService
	Ledger      *service.LedgerService
	Seed        *service.SeedService
	SeedOptions service.SeedOptions
	Admin       config.AdminConfig
}

func NewRouter(logger zerolog.Logger, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(logger), CORS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "POS API Server", "status": "running"})
	})
	r.GET("/health", health(deps.Store))

	products := NewProductHandler(logger, deps.Catalog)
	checkout := NewCheckoutHandler(logger, deps.Checkout)
	transactions := NewTransactionHandler(logger, deps.Ledger)
	admin := NewAdminHandler(logger, deps.Seed, deps.SeedOptions)

	api := r.Group("/api")
	{
		api.GET("/products", products.List)
		api.POST("/products", products.Create)
		api.GET("/products/:id", products.Get)
		api.PUT("/products/:id", products.Update)
		api.PATCH("/products/:id", products.Update)
		api.DELETE("/products/:id", products.Delete)

		api.POST("/checkout", checkout.ServeHTTP)

		api.GET("/transactions", transactions.List)
		api.GET("/transactions/:id", transactions.Get)
	}

	gated := api.Group("", AdminGate(logger, deps.Admin))
	{
		gated.POST("/reset_seed", admin.ResetSeed)
		gated.POST("/init_db", admin.InitDB)
	}

	return r
}

func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
