package store

import (
	"context"
	"fmt"
)

// sale_items.product_id has no foreign key so items outlive their product.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL CHECK (length(trim(name)) > 0),
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC(12, 2) NOT NULL CHECK (price > 0),
	category    TEXT NOT NULL,
	stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);

CREATE TABLE IF NOT EXISTS sales (
	id            TEXT PRIMARY KEY,
	total         NUMERIC(12, 2) NOT NULL CHECK (total > 0),
	sale_date     TIMESTAMPTZ NOT NULL,
	customer_name TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales (sale_date);

CREATE TABLE IF NOT EXISTS sale_items (
	id               BIGSERIAL PRIMARY KEY,
	sale_id          TEXT NOT NULL REFERENCES sales (id) ON DELETE CASCADE,
	product_id       TEXT NOT NULL,
	product_name     TEXT NOT NULL,
	product_category TEXT NOT NULL DEFAULT '',
	quantity         INTEGER NOT NULL CHECK (quantity > 0),
	unit_price       NUMERIC(12, 2) NOT NULL CHECK (unit_price > 0),
	subtotal         NUMERIC(12, 2) NOT NULL CHECK (subtotal > 0)
);

CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items (sale_id);
CREATE INDEX IF NOT EXISTS idx_sale_items_product_id ON sale_items (product_id);
`

// Migrate creates the tables if they do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
