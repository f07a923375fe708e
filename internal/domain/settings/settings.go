// Package settings holds the store-level configuration document: receipt
// header fields, the discount entry mode, and the configured payment methods.
package settings

import "github.com/spf13/cast"

// DiscountMode selects how a manually entered discount value is interpreted
// at checkout.
type DiscountMode string

const (
	// DiscountPercentage treats the entered value as a percentage of the subtotal.
	DiscountPercentage DiscountMode = "percentage"
	// DiscountFixed treats the entered value as a flat monetary amount.
	DiscountFixed DiscountMode = "fixed"
)

// Settings is the store configuration document.
type Settings struct {
	StoreName      string
	AddressLine    string
	Phone          string
	FooterText     string
	DiscountMode   DiscountMode
	PaymentMethods []string
}

// Default returns the settings used before the store document has been
// configured.
func Default() Settings {
	return Settings{
		StoreName:    "Till",
		DiscountMode: DiscountFixed,
	}
}

// Parse converts a raw settings document, tolerating missing or mistyped
// fields the same way the rest of the ingestion boundary does.
func Parse(raw map[string]any) Settings {
	s := Default()
	if v := cast.ToString(raw["storeName"]); v != "" {
		s.StoreName = v
	}
	s.AddressLine = cast.ToString(raw["address"])
	s.Phone = cast.ToString(raw["phone"])
	s.FooterText = cast.ToString(raw["footer"])

	if mode := DiscountMode(cast.ToString(raw["discountMode"])); mode == DiscountPercentage || mode == DiscountFixed {
		s.DiscountMode = mode
	}

	if methods, ok := raw["paymentMethods"].([]any); ok {
		for _, m := range methods {
			if v := cast.ToString(m); v != "" {
				s.PaymentMethods = append(s.PaymentMethods, v)
			}
		}
	}
	return s
}

// DiscountAmount converts the operator-entered discount value into a monetary
// amount for the given subtotal, clamped to [0, subtotal].
func (s Settings) DiscountAmount(subtotal, value float64) float64 {
	var amount float64
	switch s.DiscountMode {
	case DiscountPercentage:
		amount = subtotal * value / 100
	default:
		amount = value
	}
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}
