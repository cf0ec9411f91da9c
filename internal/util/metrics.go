package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales recorded",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected sales",
	}, []string{"reason"})

	SalesReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_replayed_total",
		Help: "Total number of sale requests answered from an idempotency key",
	})

	SalesRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_revenue_total",
		Help: "Accumulated revenue of recorded sales",
	})

	SaleCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_create_latency_seconds",
		Help:    "Latency of the sale creation workflow",
		Buckets: prometheus.DefBuckets,
	})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products added to the catalog",
	})

	ProductStockLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "product_stock_level",
		Help: "Stock remaining after the last sale of a product",
	}, []string{"product_id", "product_name"})

	LowStockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of times a product dropped below the low stock threshold",
	}, []string{"product_id"})

	ReportsExportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_exported_total",
		Help: "Total number of exported reports",
	}, []string{"format"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
