package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"cafe-pos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to TEST_DATABASE_URL and starts from empty tables
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore("postgres", url, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	_, err = s.GetDB().ExecContext(ctx, "TRUNCATE sale_items, sales, products")
	require.NoError(t, err)
	return s
}

func createProduct(t *testing.T, s *Store, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:       uuid.New().String(),
		Name:     name,
		Price:    price,
		Category: "Hot Drinks",
		Stock:    stock,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func newSale(p *models.Product, quantity int) *models.Sale {
	subtotal := models.RoundMoney(p.Price * float64(quantity))
	return &models.Sale{
		ID:    uuid.New().String(),
		Date:  time.Now().UTC(),
		Total: subtotal,
		Items: []models.SaleItem{{
			ProductID:       p.ID,
			ProductName:     p.Name,
			ProductCategory: p.Category,
			Quantity:        quantity,
			UnitPrice:       p.Price,
			Subtotal:        subtotal,
		}},
	}
}

func TestProductCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Latte", 3.5, 10)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Latte", got.Name)
	assert.Equal(t, 3.5, got.Price)

	got.Price = 3.75
	require.NoError(t, s.UpdateProduct(ctx, got))

	got, err = s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.75, got.Price)

	byCategory, err := s.GetProductsByCategory(ctx, "Hot Drinks")
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	deleted, err := s.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.GetProductByID(ctx, p.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = s.UpdateProduct(ctx, got)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCreateSaleRejectsNonPositiveQuantity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Latte", 3.5, 10)
	_, err := s.CreateSale(ctx, newSale(p, -3))
	assert.True(t, errors.Is(err, models.ErrValidation))

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}

func TestDateRangeExcludesNextMidnight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	p := createProduct(t, s, "Latte", 3.5, 10)

	inside := newSale(p, 1)
	inside.Date = day.Add(23 * time.Hour)
	_, err := s.CreateSale(ctx, inside)
	require.NoError(t, err)

	nextMidnight := newSale(p, 1)
	nextMidnight.Date = day.AddDate(0, 0, 1)
	_, err = s.CreateSale(ctx, nextMidnight)
	require.NoError(t, err)

	sales, err := s.GetSalesByDateRange(ctx, day, day.AddDate(0, 0, 1).Add(-time.Microsecond))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, inside.ID, sales[0].ID)
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Latte", 3.5, 10)
	sale := newSale(p, 3)

	levels, err := s.CreateSale(ctx, sale)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 7, levels[0].Stock)

	got, err := s.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.5, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Latte", got.Items[0].ProductName)

	product, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Latte", 3.5, 7)

	_, err := s.CreateSale(ctx, newSale(p, 20))
	var stockErr *models.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 7, stockErr.Available)
	assert.Equal(t, 20, stockErr.Requested)

	sales, err := s.GetSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	product, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Croissant", 2.0, 10)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.CreateSale(ctx, newSale(p, 6))
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	product, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, product.Stock)
}

func TestDeletedProductKeepsSaleSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Muffin", 2.25, 5)
	sale := newSale(p, 2)
	_, err := s.CreateSale(ctx, sale)
	require.NoError(t, err)

	_, err = s.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)

	got, err := s.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Muffin", got.Items[0].ProductName)
	assert.Equal(t, 2.25, got.Items[0].UnitPrice)
}

func TestStatisticsAndTopProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SalesStatistics{}, *stats)

	latte := createProduct(t, s, "Latte", 3.5, 10)
	muffin := createProduct(t, s, "Muffin", 2.0, 10)

	_, err = s.CreateSale(ctx, newSale(latte, 1))
	require.NoError(t, err)
	_, err = s.CreateSale(ctx, newSale(muffin, 4))
	require.NoError(t, err)

	stats, err = s.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSales)
	assert.Equal(t, 11.5, stats.TotalRevenue)
	assert.Equal(t, 5.75, stats.AverageTicket)
	assert.Equal(t, 2, stats.TotalProducts)

	top, err := s.GetTopProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, muffin.ID, top[0].ProductID)
	assert.Equal(t, 4, top[0].TotalQuantity)
}
