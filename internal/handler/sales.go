package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"

	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/sales"
)

// SalesSummary runs a full aggregation pass over the persisted orders in the
// requested range and returns the four summary views.
//
// Query parameters: range (day|week|month|custom, default day), date (anchor
// for day/week/month), start/end (custom bounds), category, payment, type, q.
func (h *Handler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, to := filter.Bounds()
	orders, err := h.orders.List(ctx, from, to)
	if err != nil {
		internalError(w, r, err)
		return
	}

	products, err := h.products.List(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}
	categories, err := h.categories.List(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	cfg, err := h.settings.Get(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	agg := sales.NewAggregator(
		catalog.NewResolver(products, categories),
		cfg.PaymentMethods,
		zctx.From(ctx),
	)
	summary := agg.Aggregate(orders, filter)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, summary)
	})
}

// LiveSummary returns the cached current-day summary maintained by the
// report service.
func (h *Handler) LiveSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.reports.Live()
	if summary == nil {
		writeError(w, http.StatusServiceUnavailable, "summary not ready")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, summary)
	})
}

// filterFromQuery builds a sales.Filter from the request query string.
func filterFromQuery(r *http.Request) (sales.Filter, error) {
	q := r.URL.Query()

	f := sales.Filter{
		Mode:          sales.RangeDay,
		Start:         time.Now(),
		CategoryID:    q.Get("category"),
		PaymentMethod: q.Get("payment"),
		OrderType:     q.Get("type"),
		SearchText:    q.Get("q"),
	}

	switch mode := q.Get("range"); mode {
	case "", string(sales.RangeDay):
	case string(sales.RangeWeek):
		f.Mode = sales.RangeWeek
	case string(sales.RangeMonth):
		f.Mode = sales.RangeMonth
	case string(sales.RangeCustom):
		f.Mode = sales.RangeCustom
	default:
		return f, fmt.Errorf("invalid range mode %q", mode)
	}

	if v := q.Get("date"); v != "" {
		anchor, err := dateparse.ParseAny(v)
		if err != nil {
			return f, fmt.Errorf("invalid date %q", v)
		}
		f.Start = anchor
	}

	if f.Mode == sales.RangeCustom {
		start, err := dateparse.ParseAny(q.Get("start"))
		if err != nil {
			return f, fmt.Errorf("invalid start date %q", q.Get("start"))
		}
		end, err := dateparse.ParseAny(q.Get("end"))
		if err != nil {
			return f, fmt.Errorf("invalid end date %q", q.Get("end"))
		}
		f.Start, f.End = start, end
	}

	return f, nil
}

func encodeSummary(e *jx.Encoder, s *sales.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for id, ps := range s.Products {
					e.Field(id, func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field("name", func(e *jx.Encoder) { e.Str(ps.Name) })
							e.Field("quantity", func(e *jx.Encoder) { e.Float64(ps.Quantity) })
							e.Field("total", func(e *jx.Encoder) { e.Float64(ps.Total) })
						})
					})
				}
			})
		})
		e.Field("categories", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for id, cs := range s.Categories {
					e.Field(id, func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field("name", func(e *jx.Encoder) { e.Str(cs.Name) })
							e.Field("total", func(e *jx.Encoder) { e.Float64(cs.Total) })
						})
					})
				}
			})
		})
		e.Field("paymentMethods", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for method, total := range s.Payments {
					e.Field(method, func(e *jx.Encoder) { e.Float64(total) })
				}
			})
		})
		e.Field("orderTypes", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for t, n := range s.OrderTypes {
					e.Field(t, func(e *jx.Encoder) { e.Int(n) })
				}
			})
		})
		e.Field("totalSales", func(e *jx.Encoder) { e.Float64(s.TotalSales) })
		e.Field("totalQuantity", func(e *jx.Encoder) { e.Float64(s.TotalQuantity) })
		e.Field("orderCount", func(e *jx.Encoder) { e.Int(s.OrderCount) })
	})
}
