package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"orderscan-api/internal/cache"
	"orderscan-api/internal/model"
	"orderscan-api/internal/repository"

	"go.uber.org/zap"
)

const (
	// DefaultPageLimit is the catalog page size when none is requested.
	DefaultPageLimit = 50

	// MaxPageLimit caps catalog pages; bulk clients page at this size.
	MaxPageLimit = 200

	// brandLoadChunk is the repository fetch size when loading a whole brand.
	brandLoadChunk = 500
)

// CatalogService serves brand catalog pages and barcode lookups. Whole-brand
// slices are cached so scan resolution does not hit the catalog store on
// every barcode.
type CatalogService struct {
	repo     repository.CatalogRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.CatalogRepository, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CatalogService{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func brandCacheKey(brandID string) string {
	return "catalog:brand:" + brandID
}

// brandProducts returns the brand's full catalog slice, ordered by SKU,
// from cache when fresh.
func (s *CatalogService) brandProducts(ctx context.Context, brandID string) ([]model.Product, error) {
	data, err := s.cache.GetOrSet(ctx, brandCacheKey(brandID), s.cacheTTL, func() ([]byte, error) {
		products, err := s.loadBrand(ctx, brandID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(products)
	})
	if err != nil {
		return nil, err
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return products, nil
}

func (s *CatalogService) loadBrand(ctx context.Context, brandID string) ([]model.Product, error) {
	var all []model.Product
	for offset := 0; ; offset += brandLoadChunk {
		page, err := s.repo.ListByBrand(ctx, brandID, brandLoadChunk, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < brandLoadChunk {
			return all, nil
		}
	}
}

// ListPage returns one page of a brand's catalog plus the total count.
func (s *CatalogService) ListPage(ctx context.Context, brandID string, page, limit int) ([]model.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	all, err := s.brandProducts(ctx, brandID)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Product{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// VisibleProducts returns the brand slice a scan session currently sees:
// the whole brand when the search query is empty, otherwise the products
// matching the query. This list is what local barcode matching runs against.
func (s *CatalogService) VisibleProducts(ctx context.Context, brandID, query string) ([]model.Product, error) {
	all, err := s.brandProducts(ctx, brandID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return all, nil
	}

	needle := strings.ToLower(query)
	visible := make([]model.Product, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.SKU), needle) ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			p.EAN == query {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// FindByCode probes the catalog across all brands by exact SKU or EAN.
// Returns (nil, nil) when nothing matches.
func (s *CatalogService) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	return s.repo.FindByCode(ctx, code)
}

// GetByID fetches one product.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Import batch-upserts catalog rows and invalidates cached brand slices.
func (s *CatalogService) Import(ctx context.Context, items []model.ProductImport) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if err := s.repo.BatchUpsert(ctx, items); err != nil {
		return 0, err
	}

	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear catalog cache after import", zap.Error(err))
	}

	s.logger.Info("catalog import applied", zap.Int("items", len(items)))
	return len(items), nil
}

// Stats returns catalog store statistics.
func (s *CatalogService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}
