package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"orderscan-api/internal/model"
	"orderscan-api/internal/service"
	"orderscan-api/pkg/apierror"
	"orderscan-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler handles catalog HTTP requests.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// ListProducts handles GET /api/v1/catalog/{brand_id}/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brand_id")
	if brandID == "" {
		response.Error(w, apierror.BadRequest("brand_id is required"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, total, err := h.catalogService.ListPage(r.Context(), brandID, page, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = service.DefaultPageLimit
	}
	if limit > service.MaxPageLimit {
		limit = service.MaxPageLimit
	}

	response.JSONWithMeta(w, http.StatusOK, products, page, limit, total)
}

// Lookup handles GET /api/v1/catalog/lookup?code=
func (h *CatalogHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.Error(w, apierror.BadRequest("code is required"))
		return
	}

	product, err := h.catalogService.FindByCode(r.Context(), code)
	if err != nil {
		response.Error(w, err)
		return
	}
	if product == nil {
		response.Error(w, apierror.NotFound("no product matches code"))
		return
	}

	response.OK(w, product)
}

// ImportRequest represents the request body for a catalog import.
type ImportRequest struct {
	Products []model.ProductImport `json:"products"`
}

// Import handles POST /api/v1/admin/catalog/import
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if len(req.Products) == 0 {
		response.Error(w, apierror.BadRequest("products is required"))
		return
	}

	for _, p := range req.Products {
		if p.ID == "" || p.SKU == "" || p.BrandID == "" {
			response.Error(w, apierror.ValidationError("each product requires id, sku and brand_id"))
			return
		}
	}

	count, err := h.catalogService.Import(r.Context(), req.Products)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to import catalog"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":   "imported",
		"imported": count,
	})
}
