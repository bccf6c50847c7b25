package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"orderscan-api/internal/model"

	"github.com/shopspring/decimal"
)

type fakeCatalogRepo struct {
	mu       sync.Mutex
	products []model.Product
	findErr  error
	listErr  error
}

func (f *fakeCatalogRepo) ListByBrand(ctx context.Context, brandID string, limit, offset int) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

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
	if f.findErr != nil {
		return nil, f.findErr
	}
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
				f.products[i] = model.Product{
					ID: item.ID, SKU: item.SKU, EAN: item.EAN, Name: item.Name,
					BrandID: item.BrandID, PackingUnit: item.PackingUnit, Price: item.Price,
					UpdatedAt: time.Now(),
				}
				replaced = true
				break
			}
		}
		if !replaced {
			f.products = append(f.products, model.Product{
				ID: item.ID, SKU: item.SKU, EAN: item.EAN, Name: item.Name,
				BrandID: item.BrandID, PackingUnit: item.PackingUnit, Price: item.Price,
				UpdatedAt: time.Now(),
			})
		}
	}
	return nil
}

func (f *fakeCatalogRepo) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"type": "fake"}, nil
}

func (f *fakeCatalogRepo) Close() error { return nil }

type fakeOrderStateRepo struct {
	mu         sync.Mutex
	selected   map[string]map[string]bool
	quantities map[string]map[string]int
	selSaves   map[string]int
	qtySaves   map[string]int
}

func newFakeOrderStateRepo() *fakeOrderStateRepo {
	return &fakeOrderStateRepo{
		selected:   make(map[string]map[string]bool),
		quantities: make(map[string]map[string]int),
		selSaves:   make(map[string]int),
		qtySaves:   make(map[string]int),
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
	f.selSaves[customerID]++
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
	f.qtySaves[customerID]++
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

func (f *fakeOrderStateRepo) saveCounts(customerID string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selSaves[customerID], f.qtySaves[customerID]
}

func (f *fakeOrderStateRepo) storedSelected(customerID string) (map[string]bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.selected[customerID]
	if !ok {
		return nil, false
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
}

func (f *fakeOrderStateRepo) storedQuantities(customerID string) (map[string]int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.quantities[customerID]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
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
