package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cafe-pos/internal/models"
)

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category, stock)
		VALUES (:id, :name, :description, :price, :category, :stock)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, product)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products, newest first
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC, id")
	return products, err
}

// GetProductsByCategory retrieves the products of a category ordered by name
func (s *Store) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category = $1 ORDER BY name", category)
	return products, err
}

// GetCategories lists the distinct product categories
func (s *Store) GetCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.SelectContext(ctx, &categories,
		"SELECT DISTINCT category FROM products ORDER BY category")
	return categories, err
}

// UpdateProduct overwrites the mutable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = :name, description = :description, price = :price,
		    category = :category, stock = :stock, updated_at = NOW()
		WHERE id = :id
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, product)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return models.NotFoundError("product", product.ID)
	}
	return rows.Scan(&product.CreatedAt, &product.UpdatedAt)
}

// DeleteProduct hard deletes a product. Past sale items are not touched.
func (s *Store) DeleteProduct(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
