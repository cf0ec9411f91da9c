// Package memstore is an in-memory implementation of the product and sale
// repositories. It is used by tests and by the server when no database is
// configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cafe-pos/internal/models"
)

type Store struct {
	mu       sync.Mutex
	products map[string]models.Product
	sales    []models.Sale
	nextItem int64
	seq      int64
	created  map[string]int64
	now      func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{
		products: make(map[string]models.Product),
		created:  make(map[string]int64),
		now:      time.Now,
	}
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	s.seq++
	s.created[product.ID] = s.seq
	s.products[product.ID] = *product
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, models.NotFoundError("product", id)
	}
	return &p, nil
}

// GetProducts retrieves all products, newest first
func (s *Store) GetProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return s.created[products[i].ID] > s.created[products[j].ID]
	})
	return products, nil
}

// GetProductsByCategory retrieves the products of a category ordered by name
func (s *Store) GetProductsByCategory(_ context.Context, category string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := []models.Product{}
	for _, p := range s.products {
		if p.Category == category {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// GetCategories lists the distinct product categories
func (s *Store) GetCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// UpdateProduct overwrites the mutable fields of a product
func (s *Store) UpdateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return models.NotFoundError("product", product.ID)
	}

	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = s.now()
	s.products[product.ID] = *product
	return nil
}

// DeleteProduct removes a product. Past sale items are not touched.
func (s *Store) DeleteProduct(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	delete(s.created, id)
	return true, nil
}

// CreateSale checks every item against current stock, then records the
// sale and decrements stock, all under one lock.
func (s *Store) CreateSale(_ context.Context, sale *models.Sale) ([]models.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range sale.Items {
		if item.Quantity <= 0 || item.Quantity > models.MaxQuantity {
			return nil, models.ValidationError("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
		p, ok := s.products[item.ProductID]
		if !ok {
			return nil, models.NotFoundError("product", item.ProductID)
		}
		if p.Stock < item.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   item.Quantity,
			}
		}
	}

	now := s.now()
	levels := make([]models.StockLevel, 0, len(sale.Items))
	for i := range sale.Items {
		s.nextItem++
		sale.Items[i].ID = s.nextItem
		sale.Items[i].SaleID = sale.ID

		p := s.products[sale.Items[i].ProductID]
		p.Stock -= sale.Items[i].Quantity
		p.UpdatedAt = now
		s.products[p.ID] = p

		levels = append(levels, models.StockLevel{ProductID: p.ID, ProductName: p.Name, Stock: p.Stock})
	}

	sale.CreatedAt = now
	s.sales = append(s.sales, copySale(*sale))
	return levels, nil
}

// GetSaleByID retrieves a sale with its items
func (s *Store) GetSaleByID(_ context.Context, id string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sale := range s.sales {
		if sale.ID == id {
			found := copySale(sale)
			return &found, nil
		}
	}
	return nil, models.NotFoundError("sale", id)
}

// GetSales retrieves all sales, most recent first
func (s *Store) GetSales(_ context.Context) ([]models.Sale, error) {
	return s.filterSales(func(models.Sale) bool { return true }), nil
}

// GetSalesByDateRange retrieves sales with start <= date <= end
func (s *Store) GetSalesByDateRange(_ context.Context, start, end time.Time) ([]models.Sale, error) {
	return s.filterSales(func(sale models.Sale) bool {
		return !sale.Date.Before(start) && !sale.Date.After(end)
	}), nil
}

func (s *Store) filterSales(keep func(models.Sale) bool) []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := []models.Sale{}
	for _, sale := range s.sales {
		if keep(sale) {
			sales = append(sales, copySale(sale))
		}
	}
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Date.After(sales[j].Date)
	})
	return sales
}

// GetStatistics aggregates every sale ever recorded
func (s *Store) GetStatistics(_ context.Context) (*models.SalesStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.SalesStatistics{TotalSales: len(s.sales)}
	products := make(map[string]bool)
	for _, sale := range s.sales {
		stats.TotalRevenue += sale.Total
		for _, item := range sale.Items {
			products[item.ProductID] = true
		}
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)
	stats.TotalProducts = len(products)
	if stats.TotalSales > 0 {
		stats.AverageTicket = models.RoundMoney(stats.TotalRevenue / float64(stats.TotalSales))
	}
	return stats, nil
}

// GetTopProducts ranks products by units sold. Ties keep the order in which
// products were first sold.
func (s *Store) GetTopProducts(_ context.Context, limit int) ([]models.TopProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int)
	latest := make(map[string]time.Time)
	top := []models.TopProduct{}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			i, ok := index[item.ProductID]
			if !ok {
				i = len(top)
				index[item.ProductID] = i
				top = append(top, models.TopProduct{ProductID: item.ProductID})
			}
			if !sale.Date.Before(latest[item.ProductID]) {
				latest[item.ProductID] = sale.Date
				top[i].ProductName = item.ProductName
			}
			top[i].TotalQuantity += item.Quantity
			top[i].TotalRevenue = models.RoundMoney(top[i].TotalRevenue + item.Subtotal)
		}
	}

	sort.SliceStable(top, func(i, j int) bool {
		return top[i].TotalQuantity > top[j].TotalQuantity
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}

func copySale(sale models.Sale) models.Sale {
	items := make([]models.SaleItem, len(sale.Items))
	copy(items, sale.Items)
	sale.Items = items
	if sale.CustomerName != nil {
		name := *sale.CustomerName
		sale.CustomerName = &name
	}
	return sale
}
