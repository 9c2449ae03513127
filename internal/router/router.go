package router

import (
	"github.com/gin-gonic/gin"

	"fakturio/internal/handler"
	"fakturio/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	apiKey string,
	invoiceH *handler.InvoiceHandler,
	reportH *handler.ReportHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.APIKey(apiKey))

	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceH.List)
	invoices.GET("/:id", invoiceH.GetByID)
	invoices.GET("/:id/logs", invoiceH.Logs)
	invoices.POST("/:id/retry", invoiceH.Retry)

	pipeline := v1.Group("/pipeline")
	pipeline.POST("/ingest", invoiceH.TriggerIngest)
	pipeline.POST("/export", invoiceH.TriggerExport)

	v1.GET("/logs", invoiceH.RecentLogs)

	reports := v1.Group("/reports")
	reports.GET("/invoices.csv", reportH.DownloadCSV)
	reports.GET("/invoices.xlsx", reportH.DownloadXLSX)

	return r
}
