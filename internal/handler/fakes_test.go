package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"orderscan-api/internal/cache"
	"orderscan-api/internal/events"
	"orderscan-api/internal/handler"
	"orderscan-api/internal/model"
	"orderscan-api/internal/router"
	"orderscan-api/internal/scanner"
	"orderscan-api/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalogRepo struct {
	mu       sync.Mutex
	products []model.Product
	statsErr error
}

func (f *fakeCatalogRepo) ListByBrand(ctx context.Context, brandID string, limit, offset int) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var brand []model.Product
	for _, p := range f.products {
		if p.BrandID == brandID {
			brand = append(brand, p)
		}
	}
	sort.Slice(brand, func(i, j int) bool { return brand[i].SKU < brand[j].SKU })

	if offset >= len(brand) {
		return []model.Product{}, nil
	}
	end := offset + limit
	if end > len(brand) {
		end = len(brand)
	}
	return brand[offset:end], nil
}

func (f *fakeCatalogRepo) CountByBrand(ctx context.Context, brandID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.BrandID == brandID {
			n++
		}
	}
	return n, nil
}

func (f *fakeCatalogRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		p := f.products[i]
		if p.SKU == code || (p.EAN != "" && p.EAN == code) {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) BatchUpsert(ctx context.Context, items []model.ProductImport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		replaced := false
		for i := range f.products {
			if f.products[i].ID == item.ID {
				f.products[i] = productFromImport(item)
				replaced = true
				break
			}
		}
		if !replaced {
			f.products = append(f.products, productFromImport(item))
		}
	}
	return nil
}

func productFromImport(item model.ProductImport) model.Product {
	return model.Product{
		ID: item.ID, SKU: item.SKU, EAN: item.EAN, Name: item.Name,
		BrandID: item.BrandID, PackingUnit: item.PackingUnit, Price: item.Price,
		UpdatedAt: time.Now(),
	}
}

func (f *fakeCatalogRepo) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]interface{}{"total_products": len(f.products)}, nil
}

func (f *fakeCatalogRepo) Close() error { return nil }

type fakeOrderStateRepo struct {
	mu         sync.Mutex
	selected   map[string]map[string]bool
	quantities map[string]map[string]int
}

func newFakeOrderStateRepo() *fakeOrderStateRepo {
	return &fakeOrderStateRepo{
		selected:   make(map[string]map[string]bool),
		quantities: make(map[string]map[string]int),
	}
}

func (f *fakeOrderStateRepo) LoadSelected(ctx context.Context, customerID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for k, v := range f.selected[customerID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeOrderStateRepo) LoadQuantities(ctx context.Context, customerID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for k, v := range f.quantities[customerID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeOrderStateRepo) SaveSelected(ctx context.Context, customerID string, selected map[string]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]bool, len(selected))
	for k, v := range selected {
		cp[k] = v
	}
	f.selected[customerID] = cp
	return nil
}

func (f *fakeOrderStateRepo) SaveQuantities(ctx context.Context, customerID string, quantities map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]int, len(quantities))
	for k, v := range quantities {
		cp[k] = v
	}
	f.quantities[customerID] = cp
	return nil
}

func (f *fakeOrderStateRepo) Delete(ctx context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.selected, customerID)
	delete(f.quantities, customerID)
	return nil
}

func (f *fakeOrderStateRepo) Close() error { return nil }

type fakeEventRepo struct {
	mu     sync.Mutex
	events []model.ScanEvent
}

func (f *fakeEventRepo) Insert(ctx context.Context, event model.ScanEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == event.ID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) BatchInsert(ctx context.Context, evts []model.ScanEvent) error {
	for _, e := range evts {
		if err := f.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, limit, offset int) ([]model.ScanEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sorted := make([]model.ScanEvent, len(f.events))
	copy(sorted, f.events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ScannedAt.After(sorted[j].ScannedAt) })

	total := int64(len(sorted))
	if offset >= len(sorted) {
		return []model.ScanEvent{}, total, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], total, nil
}

func (f *fakeEventRepo) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeEventRepo) GetStats(ctx context.Context) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]interface{}{"total_events": len(f.events)}, nil
}

func (f *fakeEventRepo) Close() error { return nil }

type fakeAccountRepo struct {
	err error
}

func (f *fakeAccountRepo) ValidateTerminalKey(ctx context.Context, key, deviceID string) (*model.TerminalValidation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.TerminalValidation{AccountID: 1, KeyID: 1, AccountName: "test", DeviceID: deviceID}, nil
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func catalogFixture() []model.Product {
	return []model.Product{
		{
			ID: "p-cushion", SKU: "ELV-CUSH-001", EAN: "5712412345678",
			Name: "Classic Wool Cushion", BrandID: "elvang", PackingUnit: 6,
			Price: price("24.50"),
		},
		{
			ID: "p-throw", SKU: "ELV-THRW-010",
			Name: "Herringbone Throw", BrandID: "elvang", PackingUnit: 4,
			Price: price("39.95"),
		},
		{
			ID: "p-vase", SKU: "RAD-VASE-100", EAN: "4025915123456",
			Name: "Stoneware Vase", BrandID: "rader", PackingUnit: 2,
			Price: price("12.00"),
		},
	}
}

// testEnv wires the full handler stack against in-memory fakes and serves it
// through the real route table.
type testEnv struct {
	router      http.Handler
	catalogRepo *fakeCatalogRepo
	orderRepo   *fakeOrderStateRepo
	eventRepo   *fakeEventRepo
}

const testLoginKey = "test-login-key"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()

	catalogRepo := &fakeCatalogRepo{products: catalogFixture()}
	orderRepo := newFakeOrderStateRepo()
	eventRepo := &fakeEventRepo{}

	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })

	catalogService := service.NewCatalogService(catalogRepo, memCache, time.Minute, logger)
	orderService := service.NewOrderService(orderRepo, catalogService, 10*time.Millisecond, logger)
	t.Cleanup(orderService.Close)

	sink := events.NewStoreSink(eventRepo, logger)
	resolver := scanner.NewResolver(catalogService, sink, logger)

	scanService := service.NewScanService(catalogService, orderService, resolver, service.ScanConfig{
		Timeout:   100 * time.Millisecond,
		MinLength: 8,
		MaxLength: 20,
	}, logger)
	t.Cleanup(scanService.Close)

	r := router.New(router.Config{
		Handler:        handler.New("test", catalogRepo),
		SessionHandler: handler.NewSessionHandler(scanService),
		OrderHandler:   handler.NewOrderHandler(orderService),
		CatalogHandler: handler.NewCatalogHandler(catalogService),
		EventsHandler:  handler.NewEventsHandler(eventRepo),
		AdminHandler:   handler.NewAdminHandler(nil, eventRepo, catalogRepo, scanService, "fake", testLoginKey),
		AuthHandler:    handler.NewAuthHandler(service.NewTokenService(nil, logger), &fakeAccountRepo{err: errors.New("invalid or expired key")}),
		Logger:         logger,
	})

	return &testEnv{
		router:      r,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		eventRepo:   eventRepo,
	}
}

// envelope mirrors the standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func (e *testEnv) createSession(t *testing.T, customerID, brandID string) string {
	t.Helper()

	code, env := e.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{
		"customer_id": customerID,
		"brand_id":    brandID,
	})
	require.Equal(t, http.StatusCreated, code)

	var info service.SessionInfo
	decodeData(t, env, &info)
	require.NotEmpty(t, info.ID)
	return info.ID
}
