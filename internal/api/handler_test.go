package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cafe-pos/internal/models"
	"cafe-pos/internal/service"
	"cafe-pos/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memIdempotency) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	return v, ok, nil
}

func (m *memIdempotency) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
	return nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	idem := &memIdempotency{keys: make(map[string]string)}

	products := service.NewProductService(store)
	sales := service.NewSaleService(store, store, nil, idem, service.SaleServiceConfig{Location: time.UTC})
	reports := service.NewReportService(store, time.UTC, 10)

	router := gin.New()
	NewHandler(products, sales, reports, store).SetupRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createLatte(t *testing.T, router *gin.Engine) models.Product {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/products", gin.H{
		"name": "Latte", "price": 3.50, "category": "Coffee", "stock": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	return product
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)

	w := doJSON(router, http.MethodPost, "/api/sales", gin.H{
		"items": []gin.H{{"productId": latte.ID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sale models.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.InDelta(t, 10.50, sale.Total, 0.001)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Latte", sale.Items[0].ProductName)

	w = doJSON(router, http.MethodGet, "/api/products/"+latte.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, 7, product.Stock)

	w = doJSON(router, http.MethodGet, "/api/sales/"+sale.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)

	w := doJSON(router, http.MethodPost, "/api/sales", gin.H{
		"items": []gin.H{{"productId": latte.ID, "quantity": 20}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock for Latte: available=10, requested=20")

	w = doJSON(router, http.MethodGet, "/api/products/"+latte.ID, nil)
	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, 10, product.Stock)
}

func TestCreateSaleIdempotencyHeader(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)
	body := gin.H{"items": []gin.H{{"productId": latte.ID, "quantity": 1}}}

	first := doJSON(router, http.MethodPost, "/api/sales", body, "Idempotency-Key", "till-1-42")
	require.Equal(t, http.StatusCreated, first.Code)
	second := doJSON(router, http.MethodPost, "/api/sales", body, "Idempotency-Key", "till-1-42")
	require.Equal(t, http.StatusOK, second.Code)

	var a, b models.Sale
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.ID, b.ID)

	w := doJSON(router, http.MethodGet, "/api/products/"+latte.ID, nil)
	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, 9, product.Stock)
}

func TestCreateSaleQuantityOverflowIsBadRequest(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)

	half := models.MaxQuantity/2 + 1
	w := doJSON(router, http.MethodPost, "/api/sales", gin.H{
		"items": []gin.H{
			{"productId": latte.ID, "quantity": half},
			{"productId": latte.ID, "quantity": half},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/products/"+latte.ID, nil)
	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, 10, product.Stock)
}

func TestValidationErrors(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/products", gin.H{"name": "Free", "price": 0, "category": "Misc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/sales", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/sales", gin.H{"items": []gin.H{{"productId": "x", "quantity": 0}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/sales?period=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/reports/top-products?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	router := setupRouter(t)

	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodGet, "/api/products/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodGet, "/api/sales/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodDelete, "/api/products/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodPut, "/api/products/missing", gin.H{"stock": 1}).Code)

	w := doJSON(router, http.MethodPost, "/api/sales", gin.H{"items": []gin.H{{"productId": "missing", "quantity": 1}}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductLifecycle(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)

	w := doJSON(router, http.MethodPut, "/api/products/"+latte.ID, gin.H{"price": 4.25})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.InDelta(t, 4.25, updated.Price, 0.001)
	assert.Equal(t, "Latte", updated.Name)

	w = doJSON(router, http.MethodGet, "/api/products/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Coffee"]`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/products/category/Coffee", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byCategory []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byCategory))
	assert.Len(t, byCategory, 1)

	w = doJSON(router, http.MethodDelete, "/api/products/"+latte.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodGet, "/api/products/"+latte.ID, nil).Code)
}

func TestStatisticsWithoutSales(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/reports/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalSales":0,"totalRevenue":0,"averageTicket":0,"totalProducts":0}`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/sales/top-products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestExportCSV(t *testing.T) {
	router := setupRouter(t)
	latte := createLatte(t, router)
	doJSON(router, http.MethodPost, "/api/sales", gin.H{"items": []gin.H{{"productId": latte.ID, "quantity": 2}}})

	w := doJSON(router, http.MethodGet, "/api/reports/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="sales_report_all_`))
	assert.Contains(t, w.Body.String(), "Latte")

	w = doJSON(router, http.MethodGet, "/api/reports/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	router := setupRouter(t)

	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/ready", nil).Code)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestReadyFailsWhenDependencyIsDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()

	h := NewHandler(
		service.NewProductService(store),
		service.NewSaleService(store, store, nil, nil, service.SaleServiceConfig{Location: time.UTC}),
		service.NewReportService(store, time.UTC, 10),
		store,
	)
	h.AddReadinessCheck("redis", downPinger{})

	router := gin.New()
	h.SetupRoutes(router)

	w := doJSON(router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"dependency":"redis"`)
}
