package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"cafe-pos/internal/models"
	"cafe-pos/internal/util"

	"go.uber.org/zap"
)

// ReportService answers read-only aggregate questions about sales
type ReportService struct {
	sales        SaleRepository
	loc          *time.Location
	defaultLimit int
	now          func() time.Time
	logger       *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(sales SaleRepository, loc *time.Location, defaultLimit int) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &ReportService{
		sales:        sales,
		loc:          loc,
		defaultLimit: defaultLimit,
		now:          time.Now,
		logger:       util.GetLogger(),
	}
}

// SalesReport is the breakdown of the sales of one period
type SalesReport struct {
	Period          Period                  `json:"period"`
	Sales           []models.Sale           `json:"sales"`
	Statistics      models.SalesStatistics  `json:"statistics"`
	TopProducts     []models.TopProduct     `json:"topProducts"`
	SalesByDate     []models.DateBucket     `json:"salesByDate"`
	SalesByCategory []models.CategoryBucket `json:"salesByCategory"`
}

// GetStatistics aggregates every sale ever recorded
func (s *ReportService) GetStatistics(ctx context.Context) (*models.SalesStatistics, error) {
	return s.sales.GetStatistics(ctx)
}

// GetTopProducts ranks products by units sold. A zero limit uses the
// configured default.
func (s *ReportService) GetTopProducts(ctx context.Context, limit int) ([]models.TopProduct, error) {
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 0 {
		return nil, models.ValidationError("limit must be a positive number")
	}
	return s.sales.GetTopProducts(ctx, limit)
}

// GetSalesReport builds the report of the period selected by q
func (s *ReportService) GetSalesReport(ctx context.Context, q PeriodQuery) (*SalesReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.GetSalesReport")
	defer span.End()

	period, sales, err := s.periodSales(ctx, q)
	if err != nil {
		return nil, err
	}

	return &SalesReport{
		Period:          period,
		Sales:           sales,
		Statistics:      summarize(sales),
		TopProducts:     topProducts(sales, s.defaultLimit),
		SalesByDate:     groupByDate(sales, s.loc),
		SalesByCategory: groupByCategory(sales),
	}, nil
}

// ExportReport renders the sales of a period as a downloadable file
func (s *ReportService) ExportReport(ctx context.Context, format string, q PeriodQuery) (*models.ExportFile, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.ExportReport")
	defer span.End()

	if format == "" {
		format = models.ExportFormatJSON
	}
	if format != models.ExportFormatJSON && format != models.ExportFormatCSV {
		return nil, models.ValidationError("unsupported export format %q", format)
	}

	period, sales, err := s.periodSales(ctx, q)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().In(s.loc)
	filename := fmt.Sprintf("sales_report_%s_%s.%s", period.Label, generatedAt.Format("2006-01-02"), format)

	var file *models.ExportFile
	if format == models.ExportFormatCSV {
		file, err = renderCSV(sales, period, generatedAt)
	} else {
		file, err = renderJSON(sales, period, generatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", format, err)
	}
	file.Filename = filename

	util.ReportsExportedTotal.WithLabelValues(format).Inc()
	s.logger.Info("Report exported",
		zap.String("format", format),
		zap.String("period", period.Label),
		zap.Int("sales", len(sales)))

	return file, nil
}

func (s *ReportService) periodSales(ctx context.Context, q PeriodQuery) (Period, []models.Sale, error) {
	period, err := ResolvePeriod(q, s.now(), s.loc)
	if err != nil {
		return Period{}, nil, err
	}
	sales, err := salesForPeriod(ctx, s.sales, period)
	if err != nil {
		return Period{}, nil, err
	}
	return period, sales, nil
}

// summarize computes statistics over a slice of sales
func summarize(sales []models.Sale) models.SalesStatistics {
	stats := models.SalesStatistics{TotalSales: len(sales)}
	products := make(map[string]bool)
	for _, sale := range sales {
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
	return stats
}

// topProducts ranks the products of the given sales by units sold. Sales
// arrive newest first; walking them backwards keeps ties in first-sold order
// and leaves each product with its latest name snapshot.
func topProducts(sales []models.Sale, limit int) []models.TopProduct {
	index := make(map[string]int)
	top := []models.TopProduct{}
	for i := len(sales) - 1; i >= 0; i-- {
		for _, item := range sales[i].Items {
			j, ok := index[item.ProductID]
			if !ok {
				j = len(top)
				index[item.ProductID] = j
				top = append(top, models.TopProduct{ProductID: item.ProductID})
			}
			top[j].ProductName = item.ProductName
			top[j].TotalQuantity += item.Quantity
			top[j].TotalRevenue = models.RoundMoney(top[j].TotalRevenue + item.Subtotal)
		}
	}

	sort.SliceStable(top, func(a, b int) bool {
		return top[a].TotalQuantity > top[b].TotalQuantity
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top
}

// groupByDate buckets sales per calendar day in loc, oldest day first
func groupByDate(sales []models.Sale, loc *time.Location) []models.DateBucket {
	index := make(map[string]int)
	buckets := []models.DateBucket{}
	for _, sale := range sales {
		day := sale.Date.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, models.DateBucket{Date: day})
		}
		buckets[i].Count++
		buckets[i].Revenue = models.RoundMoney(buckets[i].Revenue + sale.Total)
	}

	sort.Slice(buckets, func(a, b int) bool {
		return buckets[a].Date < buckets[b].Date
	})
	return buckets
}

// groupByCategory sums units and revenue per snapshot category, highest
// revenue first
func groupByCategory(sales []models.Sale) []models.CategoryBucket {
	index := make(map[string]int)
	buckets := []models.CategoryBucket{}
	for _, sale := range sales {
		for _, item := range sale.Items {
			category := item.ProductCategory
			if category == "" {
				category = "General"
			}
			i, ok := index[category]
			if !ok {
				i = len(buckets)
				index[category] = i
				buckets = append(buckets, models.CategoryBucket{Category: category})
			}
			buckets[i].Count += item.Quantity
			buckets[i].Revenue = models.RoundMoney(buckets[i].Revenue + item.Subtotal)
		}
	}

	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].Revenue > buckets[b].Revenue
	})
	return buckets
}

var csvHeader = []string{
	"Sale ID", "Date", "Customer", "Product", "Category", "Quantity", "Unit Price", "Subtotal", "Sale Total",
}

// renderCSV writes one row per sale item, preceded by the generation time
// and the period label
func renderCSV(sales []models.Sale, period Period, generatedAt time.Time) (*models.ExportFile, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"Generated At", generatedAt.Format(time.RFC3339)},
		{"Period", period.Label},
		csvHeader,
	}
	for _, sale := range sales {
		customer := "N/A"
		if sale.CustomerName != nil {
			customer = *sale.CustomerName
		}
		for _, item := range sale.Items {
			records = append(records, []string{
				sale.ID,
				sale.Date.Format(time.RFC3339),
				customer,
				item.ProductName,
				item.ProductCategory,
				strconv.Itoa(item.Quantity),
				formatMoney(item.UnitPrice),
				formatMoney(item.Subtotal),
				formatMoney(sale.Total),
			})
		}
	}

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}

	return &models.ExportFile{
		Content:  buf.String(),
		MimeType: "text/csv",
	}, nil
}

type jsonReport struct {
	GeneratedAt  time.Time     `json:"generatedAt"`
	Period       Period        `json:"period"`
	TotalSales   int           `json:"totalSales"`
	TotalRevenue float64       `json:"totalRevenue"`
	Sales        []models.Sale `json:"sales"`
}

func renderJSON(sales []models.Sale, period Period, generatedAt time.Time) (*models.ExportFile, error) {
	stats := summarize(sales)
	content, err := json.MarshalIndent(jsonReport{
		GeneratedAt:  generatedAt,
		Period:       period,
		TotalSales:   stats.TotalSales,
		TotalRevenue: stats.TotalRevenue,
		Sales:        sales,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	return &models.ExportFile{
		Content:  string(content),
		MimeType: "application/json",
	}, nil
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
