package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CatalogAPI interface {
	Home(ctx context.Context) (*service.HomeListing, error)
	ProductDetail(ctx context.Context, id uuid.UUID) (*service.ProductDetail, error)
}

type CatalogHandler struct {
	catalog CatalogAPI
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogAPI, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type HomeResponse struct {
	Featured   []ProductDTO       `json:"featured"`
	Latest     []ProductDTO       `json:"latest"`
	Brands     []*domain.Brand    `json:"brands"`
	Categories []*domain.Category `json:"categories"`
}

type ProductDetailResponse struct {
	Product ProductDTO   `json:"product"`
	Related []ProductDTO `json:"related"`
}

// Home handles GET /api/v1/products
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	home, err := h.catalog.Home(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, HomeResponse{
		Featured:   convertProducts(home.Featured),
		Latest:     convertProducts(home.Latest),
		Brands:     home.Brands,
		Categories: home.Categories,
	})
}

// ProductDetail handles GET /api/v1/products/{product_id}
func (h *CatalogHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	detail, err := h.catalog.ProductDetail(ctx, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ProductDetailResponse{
		Product: convertProduct(detail.Product),
		Related: convertProducts(detail.Related),
	})
}
