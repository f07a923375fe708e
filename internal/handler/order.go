package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tillhq/till/internal/domain/cart"
	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/domain/sales"
)

type placeOrderRequest struct {
	Items []struct {
		ProductID string   `json:"productId"`
		Quantity  int      `json:"quantity"`
		OptionIDs []string `json:"optionIds"`
	} `json:"items"`
	Payments []struct {
		Method string  `json:"method"`
		Amount float64 `json:"amount"`
	} `json:"payments"`
	OrderType string  `json:"orderType"`
	Discount  float64 `json:"discount"`
}

// PlaceOrder builds a cart from the requested items, applies the discount
// according to the store's configured mode, and completes the checkout.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := cart.New()
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("quantity must be greater than 0 for product %s", item.ProductID))
			return
		}

		p, err := h.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity,
					fmt.Sprintf("product %s not found", item.ProductID))
				return
			}
			internalError(w, r, err)
			return
		}

		modifiers := selectModifiers(p.Modifiers, item.OptionIDs)
		for range item.Quantity {
			if _, err := c.AddItem(*p, modifiers); err != nil {
				internalError(w, r, err)
				return
			}
		}
	}

	cfg, err := h.settings.Get(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}
	discount := cfg.DiscountAmount(c.Subtotal(), req.Discount)

	payments := make([]order.Payment, len(req.Payments))
	for i, p := range req.Payments {
		payments[i] = order.Payment{Method: p.Method, Amount: p.Amount}
	}

	o, err := h.checkout.Checkout(ctx, order.CheckoutRequest{
		Cart:      c,
		Payments:  payments,
		OrderType: req.OrderType,
		Discount:  discount,
	})
	if err != nil {
		mapCheckoutError(w, err, r)
		return
	}
	c.Clear()

	// The dashboard follows store snapshots; a failed refresh only delays it.
	if err := h.reports.Refresh(ctx); err != nil {
		zctx.From(ctx).Warn("report refresh after checkout failed", zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// mapCheckoutError converts checkout domain errors to HTTP responses.
func mapCheckoutError(w http.ResponseWriter, err error, r *http.Request) {
	switch {
	case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrNoPayment):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var ipErr *order.InvalidPaymentError
	if errors.As(err, &ipErr) {
		writeError(w, http.StatusUnprocessableEntity, ipErr.Error())
		return
	}

	var insErr *order.InsufficientPaymentError
	if errors.As(err, &insErr) {
		writeError(w, http.StatusUnprocessableEntity, insErr.Error())
		return
	}

	internalError(w, r, err)
}

// selectModifiers picks the product's modifiers matching the requested IDs,
// keeping the product's declared order. Unknown IDs are ignored.
func selectModifiers(available []catalog.Modifier, ids []string) []catalog.Modifier {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []catalog.Modifier
	for _, m := range available {
		if _, ok := wanted[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// ListOrders returns persisted orders in the requested date range, defaulting
// to the current day.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.orders.List(r.Context(), from, to)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

// rangeFromQuery parses optional from/to query parameters leniently.
func rangeFromQuery(r *http.Request) (from, to time.Time, err error) {
	day := sales.Filter{Mode: sales.RangeDay, Start: time.Now()}
	from, to = day.Bounds()

	if v := r.URL.Query().Get("from"); v != "" {
		from, err = dateparse.ParseAny(v)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = dateparse.ParseAny(v)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q", v)
		}
	}
	return from, to, nil
}

func encodeOrder(e *jx.Encoder, o *order.PersistedOrder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("orderDate", func(e *jx.Encoder) { e.Str(o.OrderDate.Format(time.RFC3339)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("productName", func(e *jx.Encoder) { e.Str(it.ProductName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Float64(it.Quantity) })
						e.Field("totalPrice", func(e *jx.Encoder) { e.Float64(it.TotalPrice) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Float64(o.Total) })
		e.Field("paymentMethods", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range o.Payments {
					e.Obj(func(e *jx.Encoder) {
						e.Field("method", func(e *jx.Encoder) { e.Str(p.Method) })
						e.Field("amount", func(e *jx.Encoder) { e.Float64(p.Amount) })
					})
				}
			})
		})
		e.Field("orderType", func(e *jx.Encoder) { e.Str(o.OrderType) })
		e.Field("receiptNumber", func(e *jx.Encoder) { e.Str(o.ReceiptNumber) })
		e.Field("cashChange", func(e *jx.Encoder) { e.Float64(o.CashChange) })
	})
}
