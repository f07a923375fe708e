package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Well-known payment methods. The set is extensible: orders may carry any
// method string, and reporting buckets anything outside this set as "Other".
const (
	MethodCash = "Cash"
	MethodScan = "Scan"
	MethodCard = "Card"

	MethodOther = "Other"
)

// Order types distinguish how a sale was fulfilled.
const (
	TypeDineIn   = "Dine-in"
	TypeTakeaway = "Takeaway"
)

// Item is an order line as persisted: a snapshot of the product name and the
// line's extended price at the time of sale. ProductName may diverge from the
// live catalog after the fact.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    float64
	TotalPrice  float64
}

// Payment records one tender against an order. An order may be split across
// several methods.
type Payment struct {
	Method string
	Amount float64
}

// PersistedOrder is the immutable record of a completed sale.
type PersistedOrder struct {
	ID            string
	OrderDate     time.Time
	Items         []Item
	Total         float64
	Payments      []Payment
	OrderType     string
	ReceiptNumber string
	CashChange    float64
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *PersistedOrder) error
	GetByID(ctx context.Context, id string) (*PersistedOrder, error)
	List(ctx context.Context, from, to time.Time) ([]PersistedOrder, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}
