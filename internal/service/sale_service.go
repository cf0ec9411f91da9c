package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cafe-pos/internal/models"
	"cafe-pos/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService runs the sale workflow: validate, check stock, price, persist
// and decrement atomically, then publish.
type SaleService struct {
	products       ProductRepository
	sales          SaleRepository
	publisher      EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	loc            *time.Location
	now            func() time.Time
	logger         *zap.Logger
}

// SaleServiceConfig holds the optional knobs of the sale service
type SaleServiceConfig struct {
	Location       *time.Location
	IdempotencyTTL time.Duration
}

// NewSaleService creates a new sale service. idempotency may be nil.
func NewSaleService(
	products ProductRepository,
	sales SaleRepository,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	cfg SaleServiceConfig,
) *SaleService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &SaleService{
		products:       products,
		sales:          sales,
		publisher:      publisher,
		idempotency:    idempotency,
		idempotencyTTL: cfg.IdempotencyTTL,
		loc:            cfg.Location,
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// CreateSaleRequest represents a request to register a sale
type CreateSaleRequest struct {
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerName   string            `json:"customerName"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
}

// SaleItemRequest represents one requested line of a sale
type SaleItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0,max=2147483647"`
}

// CreateSale registers a sale. When the request carries an idempotency key
// that was already used, the original sale is returned with replayed set.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest) (sale *models.Sale, replayed bool, err error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleCreateLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		}
	}()

	if existing := s.lookupIdempotencyKey(ctx, req.IdempotencyKey); existing != nil {
		util.SalesReplayedTotal.Inc()
		return existing, true, nil
	}

	lines, err := mergeItems(req.Items)
	if err != nil {
		return nil, false, err
	}

	items, err := s.priceItems(ctx, lines)
	if err != nil {
		return nil, false, err
	}

	sale = &models.Sale{
		ID:    uuid.New().String(),
		Date:  s.now(),
		Total: models.CalculateTotal(items),
		Items: items,
	}
	if name := strings.TrimSpace(req.CustomerName); name != "" {
		sale.CustomerName = &name
	}

	levels, err := s.sales.CreateSale(ctx, sale)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create sale: %w", err)
	}

	util.SalesCreatedTotal.Inc()
	util.SalesRevenueTotal.Add(sale.Total)
	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID),
		zap.Float64("total", sale.Total),
		zap.Int("items", len(sale.Items)))

	s.rememberIdempotencyKey(ctx, req.IdempotencyKey, sale.ID)
	s.publishSaleCreated(ctx, sale, levels)

	return sale, false, nil
}

// mergeItems validates the requested lines and folds repeated products into
// a single line, keeping first-seen order.
func mergeItems(items []SaleItemRequest) ([]SaleItemRequest, error) {
	if len(items) == 0 {
		return nil, models.ValidationError("a sale needs at least one item")
	}

	index := make(map[string]int, len(items))
	merged := make([]SaleItemRequest, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return nil, models.ValidationError("every item needs a productId")
		}
		if item.Quantity <= 0 || item.Quantity > models.MaxQuantity {
			return nil, models.ValidationError("quantity must be between 1 and %d", models.MaxQuantity)
		}

		if i, ok := index[id]; ok {
			if merged[i].Quantity > models.MaxQuantity-item.Quantity {
				return nil, models.ValidationError("total quantity for product %s exceeds %d", id, models.MaxQuantity)
			}
			merged[i].Quantity += item.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, SaleItemRequest{ProductID: id, Quantity: item.Quantity})
	}
	return merged, nil
}

// priceItems loads every product, checks its stock and snapshots it into a
// sale item. Nothing is written.
func (s *SaleService) priceItems(ctx context.Context, lines []SaleItemRequest) ([]models.SaleItem, error) {
	items := make([]models.SaleItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if product.Stock < line.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			}
		}

		items = append(items, models.SaleItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			ProductCategory: product.Category,
			Quantity:        line.Quantity,
			UnitPrice:       product.Price,
			Subtotal:        models.RoundMoney(product.Price * float64(line.Quantity)),
		})
	}
	return items, nil
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return s.sales.GetSaleByID(ctx, id)
}

// ListSales retrieves every sale, most recent first
func (s *SaleService) ListSales(ctx context.Context) ([]models.Sale, error) {
	return s.sales.GetSales(ctx)
}

// ListSalesByDateRange retrieves sales between start and end inclusive
func (s *SaleService) ListSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.Sale, error) {
	if end.Before(start) {
		return nil, models.ValidationError("end must not be before start")
	}
	return s.sales.GetSalesByDateRange(ctx, start, end)
}

// ListSalesByPeriod resolves the query against the current date and
// retrieves the matching sales
func (s *SaleService) ListSalesByPeriod(ctx context.Context, q PeriodQuery) ([]models.Sale, Period, error) {
	period, err := ResolvePeriod(q, s.now(), s.loc)
	if err != nil {
		return nil, Period{}, err
	}
	sales, err := salesForPeriod(ctx, s.sales, period)
	return sales, period, err
}

// GetStatistics aggregates every sale
func (s *SaleService) GetStatistics(ctx context.Context) (*models.SalesStatistics, error) {
	return s.sales.GetStatistics(ctx)
}

func salesForPeriod(ctx context.Context, repo SaleRepository, period Period) ([]models.Sale, error) {
	if period.IsAll() {
		return repo.GetSales(ctx)
	}
	return repo.GetSalesByDateRange(ctx, period.Start, period.End)
}

// lookupIdempotencyKey returns the sale previously created with key. Store
// errors are logged and treated as a miss.
func (s *SaleService) lookupIdempotencyKey(ctx context.Context, key string) *models.Sale {
	if key == "" || s.idempotency == nil {
		return nil
	}

	saleID, found, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	sale, err := s.sales.GetSaleByID(ctx, saleID)
	if err != nil {
		s.logger.Warn("Idempotency key points to an unknown sale",
			zap.String("idempotency_key", key),
			zap.String("sale_id", saleID),
			zap.Error(err))
		return nil
	}

	s.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.String("sale_id", sale.ID))
	return sale
}

func (s *SaleService) rememberIdempotencyKey(ctx context.Context, key, saleID string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.SetIdempotencyKey(ctx, key, saleID, s.idempotencyTTL); err != nil {
		s.logger.Error("Failed to store idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

func (s *SaleService) publishSaleCreated(ctx context.Context, sale *models.Sale, levels []models.StockLevel) {
	items := make([]models.SaleItemData, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, models.SaleItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	event := &models.SaleCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCreated,
			Timestamp: s.now(),
		},
		SaleID:      sale.ID,
		Total:       sale.Total,
		Items:       items,
		StockLevels: levels,
	}

	if err := s.publisher.PublishSaleCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCreated event",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
	}
}

// failureReason labels an error for the sales_failed_total metric
func failureReason(err error) string {
	var stockErr *models.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	default:
		return "db_error"
	}
}
