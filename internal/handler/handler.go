// Package handler exposes the POS API over HTTP. Handlers translate between
// the wire shapes and the domain packages; business rules live in the domain.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/domain/settings"
	"github.com/tillhq/till/internal/receipt"
	"github.com/tillhq/till/internal/report"
)

// SettingsSource loads the current store settings document.
type SettingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// Handler carries the dependencies shared by all route handlers.
type Handler struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	orders     order.Repository
	checkout   *order.Service
	settings   SettingsSource
	reports    *report.Service
	receipts   *receipt.Renderer
}

// New constructs a Handler with the required dependencies.
func New(
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	orders order.Repository,
	checkout *order.Service,
	settings SettingsSource,
	reports *report.Service,
	receipts *receipt.Renderer,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		orders:     orders,
		checkout:   checkout,
		settings:   settings,
		reports:    reports,
		receipts:   receipts,
	}
}

// Register attaches all API routes to the mux. The guard middleware protects
// mutating endpoints; read-only dashboard routes stay open.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.Handle("PUT /api/products/{id}", guard(http.HandlerFunc(h.PutProduct)))
	mux.Handle("DELETE /api/products/{id}", guard(http.HandlerFunc(h.DeleteProduct)))
	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.Handle("PUT /api/categories/{id}", guard(http.HandlerFunc(h.PutCategory)))
	mux.Handle("POST /api/orders", guard(http.HandlerFunc(h.PlaceOrder)))
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/sales/summary", h.SalesSummary)
	mux.HandleFunc("GET /api/sales/live", h.LiveSummary)
	mux.HandleFunc("GET /api/receipts/{id}", h.Receipt)
}

// writeJSON encodes a response body with jx and writes it with the status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the {code, message} error shape shared by all endpoints.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// internalError logs the error with the request-scoped logger and responds 500.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
