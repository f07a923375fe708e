// Package sales folds persisted orders into the summary views backing the
// reporting dashboards: revenue per product, per category, per payment method,
// and order counts per order type.
package sales

import (
	"go.uber.org/zap"

	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/order"
)

// UnknownCategoryKey is the synthetic bucket for products whose category
// cannot be resolved against the catalog snapshot.
const UnknownCategoryKey = "unknown"

// ProductSummary accumulates quantity and revenue for one product.
type ProductSummary struct {
	Name     string
	Quantity float64
	Total    float64
}

// CategorySummary accumulates revenue for one category.
type CategorySummary struct {
	Name  string
	Total float64
}

// Summary is the result of one aggregation pass. It is rebuilt from scratch
// on every invocation and carries no identity of its own.
type Summary struct {
	Products   map[string]ProductSummary  // keyed by product ID
	Categories map[string]CategorySummary // keyed by category ID
	Payments   map[string]float64         // keyed by payment method
	OrderTypes map[string]int             // keyed by order type

	TotalSales    float64
	TotalQuantity float64
	OrderCount    int
}

// Aggregator computes sales summaries over snapshots of persisted orders.
// It holds no state between passes; each call to Aggregate treats its input
// as a complete replacement snapshot.
type Aggregator struct {
	resolver *catalog.Resolver
	methods  map[string]struct{}
	lg       *zap.Logger
}

// NewAggregator creates an Aggregator resolving categories through the given
// catalog snapshot. knownMethods is the set of payment methods reported
// individually; anything else lands in the "Other" bucket. An empty set
// defaults to Cash, Scan, and Card.
func NewAggregator(resolver *catalog.Resolver, knownMethods []string, lg *zap.Logger) *Aggregator {
	if len(knownMethods) == 0 {
		knownMethods = []string{order.MethodCash, order.MethodScan, order.MethodCard}
	}
	methods := make(map[string]struct{}, len(knownMethods))
	for _, m := range knownMethods {
		methods[m] = struct{}{}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Aggregator{resolver: resolver, methods: methods, lg: lg}
}

// Aggregate runs a single pass over the orders, applying the filter and
// folding matching orders into a fresh Summary.
//
// Orders without a usable order date are skipped and logged; one malformed
// record never prevents aggregation of the rest. Payment and order-type
// summaries are order-level: an order that passes the filter contributes to
// them even when it carries no items.
func (a *Aggregator) Aggregate(orders []order.PersistedOrder, f Filter) *Summary {
	start, end := f.Bounds()

	s := &Summary{
		Products:   make(map[string]ProductSummary),
		Categories: make(map[string]CategorySummary),
		Payments:   make(map[string]float64),
		OrderTypes: make(map[string]int),
	}

	for i := range orders {
		o := &orders[i]

		if o.OrderDate.IsZero() {
			a.lg.Warn("skipping order with unparsable date",
				zap.String("order_id", o.ID),
				zap.String("receipt", o.ReceiptNumber),
			)
			continue
		}
		if !inRange(o.OrderDate, start, end) {
			continue
		}
		if !a.matches(o, f) {
			continue
		}

		s.OrderCount++
		s.OrderTypes[o.OrderType]++
		for _, p := range o.Payments {
			s.Payments[a.bucketMethod(p.Method)] += p.Amount
		}

		for _, it := range o.Items {
			ps := s.Products[it.ProductID]
			if ps.Name == "" {
				ps.Name = it.ProductName
			}
			ps.Quantity += it.Quantity
			ps.Total += it.TotalPrice
			s.Products[it.ProductID] = ps
		}
	}

	// Category view derives from the per-product accumulator, not from the
	// orders themselves: the category of a sale is whatever the product's
	// live catalog record says now.
	for productID, ps := range s.Products {
		key := a.resolver.CategoryOf(productID)
		name := a.resolver.CategoryName(key)
		if _, ok := a.resolver.Category(key); !ok {
			key = UnknownCategoryKey
		}
		cs := s.Categories[key]
		cs.Name = name
		cs.Total += ps.Total
		s.Categories[key] = cs

		s.TotalSales += ps.Total
		s.TotalQuantity += ps.Quantity
	}

	return s
}

// matches evaluates the non-date predicates, AND-combined.
func (a *Aggregator) matches(o *order.PersistedOrder, f Filter) bool {
	if !wildcard(f.CategoryID) {
		if len(o.Items) == 0 {
			return false
		}
		if a.resolver.CategoryOf(o.Items[0].ProductID) != f.CategoryID {
			return false
		}
	}
	if !wildcard(f.PaymentMethod) && !hasPayment(o, f.PaymentMethod) {
		return false
	}
	if !wildcard(f.OrderType) && o.OrderType != f.OrderType {
		return false
	}
	if f.SearchText != "" && !matchesSearch(o, f.SearchText) {
		return false
	}
	return true
}

// bucketMethod maps a payment method onto its reporting bucket.
func (a *Aggregator) bucketMethod(method string) string {
	if _, ok := a.methods[method]; ok {
		return method
	}
	return order.MethodOther
}
