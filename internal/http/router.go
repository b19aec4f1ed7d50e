package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Catalog *CatalogHandler
	Cart    *CartHandler
	Orders  *OrdersHandler
	Timeout time.Duration
	// MaxBodyBytes caps request bodies; zero disables the limit.
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodyBytes))
	}
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", cfg.Catalog.Home)
		r.Get("/products/{product_id}", cfg.Catalog.ProductDetail)

		r.Get("/cart", cfg.Cart.GetCart)
		r.Post("/cart/items", cfg.Cart.AddItem)
		r.Put("/cart/items/{item_id}", cfg.Cart.UpdateItem)
		r.Delete("/cart/items/{item_id}", cfg.Cart.RemoveItem)

		r.Post("/checkout", cfg.Orders.Checkout)
		r.Get("/orders", cfg.Orders.ListOrders)
		r.Get("/slip", cfg.Orders.DownloadSlip)
		r.Get("/orders/{order_id}/slip", cfg.Orders.DownloadSlip)
	})

	return r
}
