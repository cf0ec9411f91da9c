package models

import (
	"math"
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       float64   `db:"price" json:"price"`
	Category    string    `db:"category" json:"category"`
	Stock       int       `db:"stock" json:"stock"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Sale represents a completed sale. Sales are never updated.
type Sale struct {
	ID           string     `db:"id" json:"id"`
	Date         time.Time  `db:"sale_date" json:"date"`
	Total        float64    `db:"total" json:"total"`
	CustomerName *string    `db:"customer_name" json:"customerName,omitempty"`
	Items        []SaleItem `db:"-" json:"items"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// SaleItem is a line of a sale. Name, category and price are snapshots
// taken when the sale was created.
type SaleItem struct {
	ID              int64   `db:"id" json:"-"`
	SaleID          string  `db:"sale_id" json:"-"`
	ProductID       string  `db:"product_id" json:"productId"`
	ProductName     string  `db:"product_name" json:"productName"`
	ProductCategory string  `db:"product_category" json:"category"`
	Quantity        int     `db:"quantity" json:"quantity"`
	UnitPrice       float64 `db:"unit_price" json:"price"`
	Subtotal        float64 `db:"subtotal" json:"subtotal"`
}

// StockLevel is the remaining stock of a product after a sale
type StockLevel struct {
	ProductID   string `db:"id" json:"product_id"`
	ProductName string `db:"name" json:"product_name"`
	Stock       int    `db:"stock" json:"stock"`
}

// SalesStatistics aggregates a set of sales
type SalesStatistics struct {
	TotalSales    int     `db:"total_sales" json:"totalSales"`
	TotalRevenue  float64 `db:"total_revenue" json:"totalRevenue"`
	AverageTicket float64 `db:"-" json:"averageTicket"`
	TotalProducts int     `db:"total_products" json:"totalProducts"`
}

// TopProduct is a product ranked by quantity sold
type TopProduct struct {
	ProductID     string  `db:"product_id" json:"productId"`
	ProductName   string  `db:"product_name" json:"productName"`
	TotalQuantity int     `db:"total_quantity" json:"totalQuantity"`
	TotalRevenue  float64 `db:"total_revenue" json:"totalRevenue"`
}

// DateBucket groups sales by calendar day (YYYY-MM-DD)
type DateBucket struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// CategoryBucket groups sold units by product category
type CategoryBucket struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Revenue  float64 `json:"revenue"`
}

// ExportFile is a rendered report ready to be downloaded
type ExportFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

// Export formats
const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
)

// MoneyTolerance is the maximum accepted drift between a sale total and
// the sum of its items.
const MoneyTolerance = 0.01

// MaxQuantity is the largest quantity a sale line may carry. It matches the
// INTEGER quantity and stock columns.
const MaxQuantity = math.MaxInt32

// RoundMoney rounds an amount to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateTotal sums the subtotals of the given items.
func CalculateTotal(items []SaleItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal
	}
	return RoundMoney(total)
}

// TotalMatchesItems reports whether the stored total agrees with the items.
func (s *Sale) TotalMatchesItems() bool {
	return math.Abs(CalculateTotal(s.Items)-s.Total) <= MoneyTolerance
}
