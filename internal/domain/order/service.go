package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/tillhq/till/internal/domain/cart"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNoPayment = errors.New("at least one payment is required")
)

// InvalidPaymentError indicates a payment record with a non-positive amount.
type InvalidPaymentError struct {
	Method string
}

func (e *InvalidPaymentError) Error() string {
	return fmt.Sprintf("payment amount must be greater than 0 for method %s", e.Method)
}

// InsufficientPaymentError indicates the tendered payments do not cover the
// order total.
type InsufficientPaymentError struct {
	Total    float64
	Tendered float64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("tendered %.2f does not cover total %.2f", e.Tendered, e.Total)
}

// CheckoutRequest holds the input for completing a sale.
type CheckoutRequest struct {
	Cart      *cart.Cart
	Payments  []Payment
	OrderType string
	Discount  float64
}

// Service encapsulates checkout business logic: it turns an in-progress cart
// into a PersistedOrder and writes it through the Repository. The caller
// clears the cart after a successful checkout.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates a checkout Service backed by the given order repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// Checkout validates the cart and payments, computes the total and cash
// change, assigns the order a UUID and a per-day receipt number, and persists
// the resulting order.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*PersistedOrder, error) {
	if req.Cart == nil || req.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if len(req.Payments) == 0 {
		return nil, ErrNoPayment
	}
	for _, p := range req.Payments {
		if p.Amount <= 0 {
			return nil, &InvalidPaymentError{Method: p.Method}
		}
	}

	total := req.Cart.Total(req.Discount)
	if total < 0 {
		total = 0
	}

	tendered := 0.0
	for _, p := range req.Payments {
		tendered += p.Amount
	}
	if tendered < total {
		return nil, &InsufficientPaymentError{Total: total, Tendered: tendered}
	}

	now := s.now()
	receipt, err := s.nextReceiptNumber(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "assign receipt number")
	}

	items := make([]Item, 0, req.Cart.Len())
	for _, li := range req.Cart.Items() {
		items = append(items, Item{
			ProductID:   li.Product.ID,
			ProductName: li.Product.DisplayName,
			Quantity:    float64(li.Quantity),
			TotalPrice:  li.Total(),
		})
	}

	o := &PersistedOrder{
		ID:            uuid.New().String(),
		OrderDate:     now,
		Items:         items,
		Total:         total,
		Payments:      req.Payments,
		OrderType:     req.OrderType,
		ReceiptNumber: receipt,
		CashChange:    tendered - total,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// nextReceiptNumber produces R-YYYYMMDD-NNNN, sequential within the calendar
// day of the order. Two terminals checking out in the same instant can race
// to the same number; receipt numbers are a human-facing label, not a key.
func (s *Service) nextReceiptNumber(ctx context.Context, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := s.orders.CountSince(ctx, dayStart)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("R-%s-%04d", now.Format("20060102"), n+1), nil
}
