package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	FeaturedLimit = 6
	LatestLimit   = 10
	RelatedLimit  = 4
)

type HomeListing struct {
	Featured   []*domain.Product  `json:"featured"`
	Latest     []*domain.Product  `json:"latest"`
	Brands     []*domain.Brand    `json:"brands"`
	Categories []*domain.Category `json:"categories"`
}

type ProductDetail struct {
	Product     *domain.Product   `json:"product"`
	StockStatus string            `json:"stock_status"`
	Related     []*domain.Product `json:"related"`
}

type CatalogService struct {
	catalog repository.CatalogRepository
}

func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Home loads the four lists of the landing page concurrently.
func (s *CatalogService) Home(ctx context.Context) (*HomeListing, error) {
	var home HomeListing
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		home.Featured, err = s.catalog.ListFeaturedProducts(gctx, FeaturedLimit)
		return err
	})
	g.Go(func() (err error) {
		home.Latest, err = s.catalog.ListLatestProducts(gctx, LatestLimit)
		return err
	})
	g.Go(func() (err error) {
		home.Brands, err = s.catalog.ListBrands(gctx)
		return err
	})
	g.Go(func() (err error) {
		home.Categories, err = s.catalog.ListCategories(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load home listing: %w", err)
	}
	home.Featured = orEmpty(home.Featured)
	home.Latest = orEmpty(home.Latest)
	return &home, nil
}

func (s *CatalogService) ProductDetail(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	related, err := s.catalog.ListRelatedProducts(ctx, product, RelatedLimit)
	if err != nil {
		return nil, fmt.Errorf("load related products: %w", err)
	}

	return &ProductDetail{
		Product:     product,
		StockStatus: product.StockStatus(),
		Related:     orEmpty(related),
	}, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
