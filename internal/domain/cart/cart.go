// Package cart implements the in-memory order composition model: one cart per
// active terminal session, accumulating products with their chosen modifiers
// until the order is submitted or abandoned.
package cart

import (
	"github.com/go-faster/errors"

	"github.com/tillhq/till/internal/domain/catalog"
)

// ErrNilProduct is returned when AddItem is called with a product that has no
// identifier. Upstream catalog data is validated at the ingestion boundary,
// so this indicates a programmer error.
var ErrNilProduct = errors.New("product without id")

// LineItem is one distinct product entry within an in-progress order.
// Modifiers are unique by ID and keep their insertion order.
type LineItem struct {
	Product   catalog.Product
	Quantity  int
	Modifiers []catalog.Modifier
}

// Total returns quantity × (unit price + sum of modifier surcharges).
func (li *LineItem) Total() float64 {
	unit := li.Product.Price
	for _, m := range li.Modifiers {
		unit += m.Price
	}
	return float64(li.Quantity) * unit
}

// Cart holds the line items for a single in-progress order. Operations are
// not safe for concurrent use; a cart belongs to exactly one session and all
// mutations happen on that session's event loop.
type Cart struct {
	items []*LineItem
	index map[string]*LineItem // product ID -> line item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]*LineItem)}
}

// AddItem records one more unit of the given product. The first add creates a
// line item with quantity 1 and the given modifiers; subsequent adds increment
// the quantity and merge modifiers by ID, last write wins: a modifier whose ID
// is already present replaces the stored one in place, new IDs are appended.
func (c *Cart) AddItem(p catalog.Product, modifiers []catalog.Modifier) (*LineItem, error) {
	if p.ID == "" {
		return nil, ErrNilProduct
	}

	li, ok := c.index[p.ID]
	if !ok {
		li = &LineItem{
			Product:   p,
			Quantity:  1,
			Modifiers: append([]catalog.Modifier(nil), modifiers...),
		}
		c.items = append(c.items, li)
		c.index[p.ID] = li
		return li, nil
	}

	li.Quantity++
	for _, m := range modifiers {
		li.Modifiers = mergeModifier(li.Modifiers, m)
	}
	return li, nil
}

// mergeModifier replaces an existing modifier with the same ID, or appends.
func mergeModifier(mods []catalog.Modifier, m catalog.Modifier) []catalog.Modifier {
	for i := range mods {
		if mods[i].ID == m.ID {
			mods[i] = m
			return mods
		}
	}
	return append(mods, m)
}

// IncrementQuantity adds one unit to the line item for productID.
// No-op when the product is not in the cart.
func (c *Cart) IncrementQuantity(productID string) {
	if li, ok := c.index[productID]; ok {
		li.Quantity++
	}
}

// DecrementQuantity removes one unit from the line item for productID,
// deleting the line item entirely when the quantity reaches zero.
// No-op when the product is not in the cart.
func (c *Cart) DecrementQuantity(productID string) {
	li, ok := c.index[productID]
	if !ok {
		return
	}
	li.Quantity--
	if li.Quantity <= 0 {
		c.RemoveItem(productID)
	}
}

// RemoveItem deletes the line item for productID unconditionally.
func (c *Cart) RemoveItem(productID string) {
	if _, ok := c.index[productID]; !ok {
		return
	}
	delete(c.index, productID)
	for i, li := range c.items {
		if li.Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
}

// Item returns the line item for productID, or nil.
func (c *Cart) Item(productID string) *LineItem {
	return c.index[productID]
}

// Items returns the line items in insertion order. The returned slice is a
// copy; the line items themselves are live.
func (c *Cart) Items() []*LineItem {
	return append([]*LineItem(nil), c.items...)
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Subtotal sums the line totals across the whole cart.
func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, li := range c.items {
		sum += li.Total()
	}
	return sum
}

// Total returns the subtotal minus the given discount. The discount itself is
// an external input; no promotional logic lives here.
func (c *Cart) Total(discount float64) float64 {
	return c.Subtotal() - discount
}

// Clear empties the cart. Used after order submission or cancellation.
func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]*LineItem)
}
