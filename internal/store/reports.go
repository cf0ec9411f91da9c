package store

import (
	"context"

	"cafe-pos/internal/models"
)

// GetStatistics aggregates every sale ever recorded
func (s *Store) GetStatistics(ctx context.Context) (*models.SalesStatistics, error) {
	var stats models.SalesStatistics
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_sales,
			COALESCE(SUM(total), 0) AS total_revenue,
			(SELECT COUNT(DISTINCT product_id) FROM sale_items) AS total_products
		FROM sales`)
	if err != nil {
		return nil, err
	}

	if stats.TotalSales > 0 {
		stats.AverageTicket = models.RoundMoney(stats.TotalRevenue / float64(stats.TotalSales))
	}
	return &stats, nil
}

// GetTopProducts ranks products by units sold. The name is the most recent
// snapshot; ties keep the order in which products were first sold.
func (s *Store) GetTopProducts(ctx context.Context, limit int) ([]models.TopProduct, error) {
	top := []models.TopProduct{}
	err := s.db.SelectContext(ctx, &top, `
		SELECT
			si.product_id,
			(ARRAY_AGG(si.product_name ORDER BY s.sale_date DESC))[1] AS product_name,
			SUM(si.quantity) AS total_quantity,
			SUM(si.subtotal) AS total_revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		GROUP BY si.product_id
		ORDER BY total_quantity DESC, MIN(si.id)
		LIMIT $1`, limit)
	return top, err
}
