package worker

import (
	"context"

	"cafe-pos/internal/broker"
	"cafe-pos/internal/models"
	"cafe-pos/internal/util"

	"go.uber.org/zap"
)

// Consumer is the part of broker.Consumer the worker drives
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// StockWorker follows sale events and tracks remaining stock per product
type StockWorker struct {
	consumer          Consumer
	eventHandler      *broker.EventHandler
	lowStockThreshold int
	logger            *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer Consumer, lowStockThreshold int) *StockWorker {
	w := &StockWorker{
		consumer:          consumer,
		eventHandler:      broker.NewEventHandler(),
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
	w.eventHandler.OnSaleCreated(w.handleSaleCreated)
	return w
}

// Start blocks until ctx is cancelled
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker", zap.Int("low_stock_threshold", w.lowStockThreshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}

func (w *StockWorker) handleSaleCreated(_ context.Context, event *models.SaleCreatedEvent) error {
	for _, level := range event.StockLevels {
		util.ProductStockLevel.WithLabelValues(level.ProductID, level.ProductName).Set(float64(level.Stock))

		if level.Stock < w.lowStockThreshold {
			util.LowStockAlertsTotal.WithLabelValues(level.ProductID).Inc()
			w.logger.Warn("Product stock is low",
				zap.String("sale_id", event.SaleID),
				zap.String("product_id", level.ProductID),
				zap.String("product_name", level.ProductName),
				zap.Int("stock", level.Stock))
		}
	}
	return nil
}
