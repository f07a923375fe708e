package sales

import (
	"strings"
	"time"

	"github.com/tillhq/till/internal/domain/order"
)

// RangeMode selects how a Filter's date bounds are derived from its anchor.
type RangeMode string

const (
	// RangeDay covers the anchor's calendar day.
	RangeDay RangeMode = "day"
	// RangeWeek covers the anchor's Sunday through the following Saturday.
	RangeWeek RangeMode = "week"
	// RangeMonth covers the anchor's first through last calendar day.
	RangeMonth RangeMode = "month"
	// RangeCustom uses the caller-supplied Start and End verbatim.
	RangeCustom RangeMode = "custom"
)

// FilterAll is the sentinel value meaning a predicate is not applied.
const FilterAll = "all"

// Filter restricts which persisted orders an aggregation pass includes.
// Zero-value string fields (or FilterAll, case-insensitively) disable the
// corresponding predicate.
type Filter struct {
	Mode  RangeMode
	Start time.Time // anchor date, or lower bound for RangeCustom
	End   time.Time // upper bound, RangeCustom only

	CategoryID    string // matched against the first item's product category
	PaymentMethod string // order must carry at least one payment with this method
	OrderType     string
	SearchText    string // substring of receipt number or any item name
}

// Bounds normalizes the filter's date range to inclusive instants.
func (f Filter) Bounds() (start, end time.Time) {
	anchor := f.Start
	switch f.Mode {
	case RangeWeek:
		// Back up to the anchor's Sunday.
		sunday := startOfDay(anchor).AddDate(0, 0, -int(anchor.Weekday()))
		return sunday, endOfDay(sunday.AddDate(0, 0, 6))
	case RangeMonth:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		return first, endOfDay(first.AddDate(0, 1, -1))
	case RangeCustom:
		return f.Start, f.End
	default: // RangeDay
		return startOfDay(anchor), endOfDay(anchor)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// inRange reports whether t falls inside the inclusive [start, end] bounds.
func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// wildcard reports whether a filter value means "no restriction".
func wildcard(v string) bool {
	return v == "" || strings.EqualFold(v, FilterAll)
}

// matchesSearch reports whether the order's receipt number or any item's
// product-name snapshot contains the text, case-insensitively.
func matchesSearch(o *order.PersistedOrder, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(o.ReceiptNumber), needle) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.ProductName), needle) {
			return true
		}
	}
	return false
}

// hasPayment reports whether the order carries at least one payment record
// with the given method.
func hasPayment(o *order.PersistedOrder, method string) bool {
	for _, p := range o.Payments {
		if p.Method == method {
			return true
		}
	}
	return false
}
