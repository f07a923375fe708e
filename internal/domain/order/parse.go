package order

import (
	"sort"

	"github.com/araddon/dateparse"
	"github.com/go-faster/errors"
	"github.com/spf13/cast"
)

// ParseOrder converts a raw order document from the store into a
// PersistedOrder. Upstream records are duck-typed: items and payments are
// keyed by arbitrary child IDs, numerics may arrive as strings, and the
// order date is whatever the writing client produced.
//
// Numeric fields coerce to 0 when unparsable. An unparsable or missing order
// date leaves OrderDate as the zero time; callers decide whether such an
// order is usable (the sales aggregator skips and logs it). Only a missing
// id is an error.
func ParseOrder(id string, raw map[string]any) (PersistedOrder, error) {
	if id == "" {
		return PersistedOrder{}, errors.New("order id is required")
	}

	o := PersistedOrder{
		ID:            id,
		Total:         cast.ToFloat64(raw["total"]),
		OrderType:     cast.ToString(raw["orderType"]),
		ReceiptNumber: cast.ToString(raw["receiptNumber"]),
		CashChange:    cast.ToFloat64(raw["cashChange"]),
	}

	if s := cast.ToString(raw["orderDate"]); s != "" {
		if t, err := dateparse.ParseAny(s); err == nil {
			o.OrderDate = t
		}
	}

	for _, rawItem := range childrenOf(raw["items"]) {
		o.Items = append(o.Items, Item{
			ProductID:   cast.ToString(rawItem["productId"]),
			ProductName: cast.ToString(rawItem["productName"]),
			Quantity:    cast.ToFloat64(rawItem["quantity"]),
			TotalPrice:  cast.ToFloat64(rawItem["totalPrice"]),
		})
	}

	for _, rawPay := range childrenOf(raw["paymentMethods"]) {
		o.Payments = append(o.Payments, Payment{
			Method: cast.ToString(rawPay["method"]),
			Amount: cast.ToFloat64(rawPay["amount"]),
		})
	}

	return o, nil
}

// childrenOf flattens a store child collection, which is either a map keyed
// by arbitrary IDs or a plain array. Map children are ordered by key so the
// result is deterministic.
func childrenOf(v any) []map[string]any {
	switch coll := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(coll))
		for _, c := range coll {
			if m, ok := c.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(coll))
		for k := range coll {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]map[string]any, 0, len(coll))
		for _, k := range keys {
			if m, ok := coll[k].(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
