package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cafe-pos/internal/models"
	"cafe-pos/internal/service"
	"cafe-pos/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name   string
	pinger Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	products *service.ProductService
	sales    *service.SaleService
	reports  *service.ReportService
	checks   []dependency
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	products *service.ProductService,
	sales *service.SaleService,
	reports *service.ReportService,
	store Pinger,
) *Handler {
	return &Handler{
		products: products,
		sales:    sales,
		reports:  reports,
		checks:   []dependency{{name: "database", pinger: store}},
		logger:   util.GetLogger(),
	}
}

// AddReadinessCheck makes /ready also depend on p
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks = append(h.checks, dependency{name: name, pinger: p})
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.POST("/products", h.createProduct)
		api.GET("/products/categories", h.listCategories)
		api.GET("/products/category/:category", h.listProductsByCategory)
		api.GET("/products/:id", h.getProduct)
		api.PUT("/products/:id", h.updateProduct)
		api.DELETE("/products/:id", h.deleteProduct)

		api.GET("/sales", h.listSales)
		api.POST("/sales", h.createSale)
		api.GET("/sales/period/:period", h.listSalesByPeriod)
		api.GET("/sales/statistics", h.getStatistics)
		api.GET("/sales/top-products", h.getTopProducts)
		api.GET("/sales/:id", h.getSale)

		api.GET("/reports/sales", h.getSalesReport)
		api.GET("/reports/top-products", h.getTopProducts)
		api.GET("/reports/statistics", h.getStatistics)
		api.GET("/reports/export", h.exportReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every registered dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	for _, check := range h.checks {
		if err := check.pinger.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", check.name), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "unavailable",
				"dependency": check.name,
				"time":       time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// badRequest answers a request whose body or query could not be bound
func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// writeError maps domain errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	var stockErr *models.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": stockErr.Error(),
			"details": gin.H{
				"productId":   stockErr.ProductID,
				"productName": stockErr.ProductName,
				"available":   stockErr.Available,
				"requested":   stockErr.Requested,
			},
		})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))

		body := gin.H{"error": "Internal server error"}
		if gin.Mode() != gin.ReleaseMode {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// parseLimit reads the optional limit query parameter. Absent means 0, which
// the report service replaces with its default.
func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, models.ValidationError("limit must be a positive integer, got %q", raw)
	}
	return limit, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
