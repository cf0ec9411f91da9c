package service

import (
	"context"
	"time"

	"cafe-pos/internal/models"
)

// ProductRepository persists catalog products. Missing ids are reported
// with an error wrapping models.ErrNotFound.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error)
	GetCategories(ctx context.Context) ([]string, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) (bool, error)
}

// SaleRepository persists sales and answers aggregate queries over them.
//
// CreateSale must store the sale with its items and decrement the stock of
// every product atomically. If any product lacks stock at commit time it
// returns *models.InsufficientStockError and leaves everything unchanged.
type SaleRepository interface {
	CreateSale(ctx context.Context, sale *models.Sale) ([]models.StockLevel, error)
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	GetSales(ctx context.Context) ([]models.Sale, error)
	GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.Sale, error)
	GetStatistics(ctx context.Context) (*models.SalesStatistics, error)
	GetTopProducts(ctx context.Context, limit int) ([]models.TopProduct, error)
}

// EventPublisher publishes sale domain events
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
}

// IdempotencyStore remembers which sale an idempotency key produced
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// PublishSaleCreated implements EventPublisher
func (NoopPublisher) PublishSaleCreated(context.Context, *models.SaleCreatedEvent) error {
	return nil
}
