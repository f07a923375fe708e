package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/tillhq/till/internal/domain/catalog"
)

// ListProducts returns the sellable catalog with resolved category names.
// Inactive products are hidden; the catalog editor sees them through its own
// surface, not this one.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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
	resolver := catalog.NewResolver(products, categories)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				if !p.Active {
					continue
				}
				encodeProduct(e, p, resolver.CategoryName(p.CategoryID))
			}
		})
	})
}

func encodeProduct(e *jx.Encoder, p catalog.Product, categoryName string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.DisplayName) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(p.Price) })
		e.Field("categoryId", func(e *jx.Encoder) { e.Str(p.CategoryID) })
		e.Field("categoryName", func(e *jx.Encoder) { e.Str(categoryName) })
		e.Field("options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, m := range p.Modifiers {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(m.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(m.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Float64(m.Price) })
					})
				}
			})
		})
	})
}

// PutProduct upserts a product from a raw catalog-editor document. The body
// is parsed leniently at the ingestion boundary: malformed modifiers are
// dropped, loose scalars are coerced.
func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := catalog.ParseProduct(id, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.products.Put(r.Context(), p); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct removes a product from the catalog.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range categories {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
				})
			}
		})
	})
}

// PutCategory upserts a category.
func (h *Handler) PutCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := catalog.ParseCategory(id, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.categories.Put(r.Context(), c); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
