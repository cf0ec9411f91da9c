package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cafe-pos/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateSale stores the sale and its items and decrements stock in a single
// transaction. Product rows are locked (FOR UPDATE, ordered by id) before the
// stock check, so concurrent sales of the same product are serialized.
//
// Only stock is re-read under the lock. Name, category and price on the items
// are the values the caller priced the sale with; a product edit committed in
// between is not reflected in the snapshot.
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) ([]models.StockLevel, error) {
	for _, item := range sale.Items {
		if item.Quantity <= 0 || item.Quantity > models.MaxQuantity {
			return nil, models.ValidationError("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	locked, err := lockProducts(ctx, tx, sale.Items)
	if err != nil {
		return nil, err
	}

	for _, item := range sale.Items {
		level, ok := locked[item.ProductID]
		if !ok {
			return nil, models.NotFoundError("product", item.ProductID)
		}
		if level.Stock < item.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: level.ProductName,
				Available:   level.Stock,
				Requested:   item.Quantity,
			}
		}
	}

	err = tx.GetContext(ctx, &sale.CreatedAt, `
		INSERT INTO sales (id, total, sale_date, customer_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		sale.ID, sale.Total, sale.Date, sale.CustomerName)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	levels := make([]models.StockLevel, 0, len(sale.Items))
	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID

		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO sale_items (sale_id, product_id, product_name, product_category, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.SaleID, item.ProductID, item.ProductName, item.ProductCategory,
			item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale item: %w", err)
		}

		var remaining int
		err = tx.GetContext(ctx, &remaining, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1
			RETURNING stock`,
			item.Quantity, item.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			level := locked[item.ProductID]
			return nil, &models.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: level.ProductName,
				Available:   level.Stock,
				Requested:   item.Quantity,
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}

		levels = append(levels, models.StockLevel{
			ProductID:   item.ProductID,
			ProductName: locked[item.ProductID].ProductName,
			Stock:       remaining,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return levels, nil
}

// lockProducts locks the rows of every product referenced by items
func lockProducts(ctx context.Context, tx *sqlx.Tx, items []models.SaleItem) (map[string]models.StockLevel, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	query, args, err := sqlx.In(
		"SELECT id, name, stock FROM products WHERE id IN (?) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	var rows []models.StockLevel
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	locked := make(map[string]models.StockLevel, len(rows))
	for _, row := range rows {
		locked[row.ProductID] = row
	}
	return locked, nil
}

// GetSaleByID retrieves a sale with its items
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("sale", id)
	}
	if err != nil {
		return nil, err
	}

	sales := []models.Sale{sale}
	if err := s.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// GetSales retrieves all sales, most recent first
func (s *Store) GetSales(ctx context.Context) ([]models.Sale, error) {
	sales := []models.Sale{}
	if err := s.db.SelectContext(ctx, &sales, "SELECT * FROM sales ORDER BY sale_date DESC"); err != nil {
		return nil, err
	}
	return sales, s.attachItems(ctx, sales)
}

// GetSalesByDateRange retrieves sales with start <= sale_date <= end
func (s *Store) GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE sale_date >= $1 AND sale_date <= $2 ORDER BY sale_date DESC",
		start, end)
	if err != nil {
		return nil, err
	}
	return sales, s.attachItems(ctx, sales)
}

// attachItems loads the items of every sale in one query
func (s *Store) attachItems(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]string, len(sales))
	index := make(map[string]int, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
		index[sales[i].ID] = i
		sales[i].Items = []models.SaleItem{}
	}

	query, args, err := sqlx.In("SELECT * FROM sale_items WHERE sale_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.SaleItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}

	for _, item := range items {
		i := index[item.SaleID]
		sales[i].Items = append(sales[i].Items, item)
	}
	return nil
}
