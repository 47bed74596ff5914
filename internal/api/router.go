// Package api exposes a running instance over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"energy-billing/internal/api/handlers"
	"energy-billing/internal/api/middleware"
	"energy-billing/internal/api/models"
	"energy-billing/internal/ledger"
	"energy-billing/internal/tariff"
)

// Deps is everything the router serves
type Deps struct {
	InstanceID   string
	Instance     handlers.Instance
	Ledger       ledger.Writer
	BuySchedule  *tariff.Schedule
	SellRate     tariff.FlatRate
	Currency     string
	CostDecimals int
	CORSOrigins  []string
	Logger       zerolog.Logger
	// Metrics serves /metrics; nil uses the default prometheus gatherer
	Metrics http.Handler
}

// NewRouter wires middleware and routes onto a fresh gin engine
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.ErrorHandler(d.Logger))

	snapshotHandler := handlers.NewSnapshotHandler(d.Instance, d.Logger)
	ledgerHandler := handlers.NewLedgerHandler(d.Ledger)
	tariffHandler := handlers.NewTariffHandler(d.BuySchedule, d.SellRate, d.Currency, d.CostDecimals)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", InstanceID: d.InstanceID})
	})
	metricsHandler := d.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	api := router.Group("/api/v1")
	{
		api.GET("/snapshot", snapshotHandler.GetSnapshot)
		api.POST("/refresh", snapshotHandler.Refresh)
		api.POST("/options", snapshotHandler.ApplyOptions)
		api.GET("/events", snapshotHandler.Events)

		api.GET("/ledger/:year", ledgerHandler.GetLedger)
		api.GET("/ledger/:year/export", ledgerHandler.Export)

		api.GET("/tariff", tariffHandler.GetTariff)
		api.GET("/tariff/quote", tariffHandler.Quote)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}
