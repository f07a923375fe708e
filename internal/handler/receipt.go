package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/tillhq/till/internal/domain/order"
)

// Receipt renders the HTML receipt for a persisted order.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, err)
		return
	}

	cfg, err := h.settings.Get(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.receipts.Render(w, o, cfg); err != nil {
		// Headers are already written; the client sees a truncated page.
		internalError(w, r, err)
	}
}
