package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

// CategoryAll is the reserved category identifier meaning "no category filter".
const CategoryAll = "All"

// UnknownCategoryName labels products whose category reference cannot be
// resolved against the live catalog.
const UnknownCategoryName = "Unknown Category"

// ErrNotFound is returned when a requested catalog record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// Modifier is an optional paid add-on attached to a product selection,
// such as "Extra Cheese". Immutable once attached to a line item.
type Modifier struct {
	ID    string
	Name  string
	Price float64
}

// Product represents a sellable catalog item.
type Product struct {
	ID          string
	DisplayName string
	Price       float64
	CategoryID  string
	Active      bool
	Modifiers   []Modifier
}

// Category groups products for filtering and reporting.
type Category struct {
	ID   string
	Name string
}

// ProductRepository defines catalog operations for products.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Put(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines catalog operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Put(ctx context.Context, c Category) error
	Delete(ctx context.Context, id string) error
}

// Resolver answers category-name lookups over an in-memory catalog snapshot.
// Products reference categories by ID; a dangling reference resolves to
// UnknownCategoryName rather than failing.
type Resolver struct {
	products   map[string]Product
	categories map[string]Category
}

// NewResolver builds a Resolver from catalog snapshots.
func NewResolver(products []Product, categories []Category) *Resolver {
	r := &Resolver{
		products:   make(map[string]Product, len(products)),
		categories: make(map[string]Category, len(categories)),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	for _, c := range categories {
		r.categories[c.ID] = c
	}
	return r
}

// Product returns the product with the given ID from the snapshot.
func (r *Resolver) Product(id string) (Product, bool) {
	p, ok := r.products[id]
	return p, ok
}

// Category returns the category with the given ID from the snapshot.
func (r *Resolver) Category(id string) (Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// CategoryName resolves a category ID to its display name, falling back to
// UnknownCategoryName for dangling or empty references.
func (r *Resolver) CategoryName(categoryID string) string {
	if c, ok := r.categories[categoryID]; ok && c.Name != "" {
		return c.Name
	}
	return UnknownCategoryName
}

// CategoryOf resolves the category ID recorded for a product, or "" when the
// product is not in the snapshot.
func (r *Resolver) CategoryOf(productID string) string {
	if p, ok := r.products[productID]; ok {
		return p.CategoryID
	}
	return ""
}
