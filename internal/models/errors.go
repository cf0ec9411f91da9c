package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that breaks a business rule
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing product or sale
	ErrNotFound = errors.New("not found")
)

// ValidationError wraps a human readable message as a validation failure.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError reports a missing entity by id.
func NotFoundError(entity, id string) error {
	return fmt.Errorf("%s %s %w", entity, id, ErrNotFound)
}

// InsufficientStockError is returned when a sale asks for more units than a
// product has in stock.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available=%d, requested=%d",
		e.ProductName, e.Available, e.Requested)
}
