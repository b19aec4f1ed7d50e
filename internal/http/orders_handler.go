package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/service"
	"github.com/fjod/go_cart/storefront-service/internal/slip"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CheckoutAPI interface {
	Checkout(ctx context.Context, userID uuid.UUID, contact domain.Contact) (*service.CheckoutResult, error)
	DownloadSlip(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID) (*slip.Document, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
}

type OrdersHandler struct {
	checkout CheckoutAPI
	timeout  time.Duration
}

func NewOrdersHandler(checkout CheckoutAPI, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutResponse struct {
	Order         OrderDTO `json:"order"`
	SlipURL       string   `json:"slip_url"`
	SlipAvailable bool     `json:"slip_available"`
	SlipETag      string   `json:"slip_etag,omitempty"`
}

type OrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
}

// Checkout handles POST /api/v1/checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var contact domain.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.checkout.Checkout(ctx, userID, contact)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := CheckoutResponse{
		Order:         convertOrder(result.Order),
		SlipURL:       fmt.Sprintf("/api/v1/orders/%s/slip", result.Order.ID),
		SlipAvailable: result.Slip != nil,
	}
	if result.Slip != nil {
		resp.SlipETag = result.Slip.ETag
	}

	respondJSON(w, http.StatusCreated, resp)
}

// ListOrders handles GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.checkout.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: dtos})
}

// DownloadSlip handles GET /api/v1/slip (active cart) and
// GET /api/v1/orders/{order_id}/slip.
func (h *OrdersHandler) DownloadSlip(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var orderID *uuid.UUID
	if raw := chi.URLParam(r, "order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
			return
		}
		orderID = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	doc, err := h.checkout.DownloadSlip(ctx, userID, orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("ETag", doc.ETag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if etagMatches(r.Header.Values("If-None-Match"), doc.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

// etagMatches applies the weak comparison of If-None-Match: any listed tag
// matches etag once W/ prefixes are ignored, and * matches everything.
func etagMatches(headers []string, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, header := range headers {
		for _, tag := range strings.Split(header, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "*" || (tag != "" && strings.TrimPrefix(tag, "W/") == want) {
				return true
			}
		}
	}
	return false
}
