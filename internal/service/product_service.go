package service

import (
	"context"
	"fmt"
	"strings"

	"cafe-pos/internal/models"
	"cafe-pos/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles catalog business logic
type ProductService struct {
	repo   ProductRepository
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(repo ProductRepository) *ProductService {
	return &ProductService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest represents a request to add a product
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Category    string  `json:"category" binding:"required"`
	Stock       int     `json:"stock" binding:"gte=0"`
}

// UpdateProductRequest carries the fields to change; nil fields are kept
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
}

// CreateProduct validates and stores a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       models.RoundMoney(req.Price),
		Category:    strings.TrimSpace(req.Category),
		Stock:       req.Stock,
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// ListProducts retrieves the whole catalog
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetProducts(ctx)
}

// ListProductsByCategory retrieves the products of one category
func (s *ProductService) ListProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, models.ValidationError("category is required")
	}
	return s.repo.GetProductsByCategory(ctx, category)
}

// ListCategories retrieves the distinct categories of the catalog
func (s *ProductService) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.GetCategories(ctx)
}

// UpdateProduct merges the request onto the stored product and revalidates
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = models.RoundMoney(*req.Price)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ID))
	return product, nil
}

// DeleteProduct removes a product from the catalog
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NotFoundError("product", id)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// validateProduct enforces the catalog invariants
func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return models.ValidationError("product name is required")
	}
	if p.Category == "" {
		return models.ValidationError("product category is required")
	}
	if p.Price <= 0 {
		return models.ValidationError("price must be greater than 0")
	}
	if p.Stock < 0 {
		return models.ValidationError("stock cannot be negative")
	}
	return nil
}
