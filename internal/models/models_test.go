package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.5, RoundMoney(3.5*3))
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 2.68, RoundMoney(2.675000001))
}

func TestTotalMatchesItems(t *testing.T) {
	sale := &Sale{
		Total: 13.0,
		Items: []SaleItem{
			{Quantity: 3, UnitPrice: 3.5, Subtotal: 10.5},
			{Quantity: 1, UnitPrice: 2.5, Subtotal: 2.5},
		},
	}
	assert.True(t, sale.TotalMatchesItems())

	sale.Total = 12.0
	assert.False(t, sale.TotalMatchesItems())
}

func TestErrorKinds(t *testing.T) {
	err := ValidationError("price must be greater than 0")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "price must be greater than 0")

	err = NotFoundError("product", "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))

	var stockErr *InsufficientStockError
	err = &InsufficientStockError{ProductName: "Latte", Available: 7, Requested: 20}
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "insufficient stock for Latte: available=7, requested=20", err.Error())
}
