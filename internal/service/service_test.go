package service

import (
	"context"
	"sync"
	"time"

	"cafe-pos/internal/models"
	"cafe-pos/internal/store/memstore"
)

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]string)}
}

func (f *fakeIdempotency) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	return v, ok, nil
}

func (f *fakeIdempotency) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = value
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.SaleCreatedEvent
}

func (p *recordingPublisher) PublishSaleCreated(_ context.Context, event *models.SaleCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type testEnv struct {
	store     *memstore.Store
	products  *ProductService
	sales     *SaleService
	reports   *ReportService
	publisher *recordingPublisher
	idem      *fakeIdempotency
}

func newTestEnv() *testEnv {
	store := memstore.New()
	publisher := &recordingPublisher{}
	idem := newFakeIdempotency()

	sales := NewSaleService(store, store, publisher, idem, SaleServiceConfig{Location: time.UTC})
	sales.now = func() time.Time { return fixedNow }

	reports := NewReportService(store, time.UTC, 10)
	reports.now = func() time.Time { return fixedNow }

	return &testEnv{
		store:     store,
		products:  NewProductService(store),
		sales:     sales,
		reports:   reports,
		publisher: publisher,
		idem:      idem,
	}
}

func (e *testEnv) mustProduct(name string, price float64, stock int, category string) *models.Product {
	p, err := e.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name: name, Price: price, Stock: stock, Category: category,
	})
	if err != nil {
		panic(err)
	}
	return p
}
