// Package receipt renders completed orders as printable HTML receipts.
package receipt

import (
	"fmt"
	"html/template"
	"io"

	"github.com/go-faster/errors"

	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/domain/settings"
)

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: monospace; width: 280px; margin: 0 auto; }
h1 { font-size: 14px; text-align: center; margin: 4px 0; }
p.meta { font-size: 11px; text-align: center; margin: 2px 0; }
table { width: 100%; font-size: 11px; border-collapse: collapse; }
td.amount { text-align: right; }
tr.total td { border-top: 1px dashed #000; font-weight: bold; }
p.footer { font-size: 11px; text-align: center; margin-top: 8px; }
</style>
</head>
<body>
<h1>{{.Store.StoreName}}</h1>
{{if .Store.AddressLine}}<p class="meta">{{.Store.AddressLine}}</p>{{end}}
{{if .Store.Phone}}<p class="meta">{{.Store.Phone}}</p>{{end}}
<p class="meta">{{.Order.ReceiptNumber}} &middot; {{.Date}}</p>
<p class="meta">{{.Order.OrderType}}</p>
<table>
{{range .Lines}}<tr><td>{{.Name}} x{{.Quantity}}</td><td class="amount">{{.Total}}</td></tr>
{{end}}<tr class="total"><td>Total</td><td class="amount">{{.Total}}</td></tr>
{{range .Payments}}<tr><td>{{.Method}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}{{if .Change}}<tr><td>Change</td><td class="amount">{{.Change}}</td></tr>{{end}}
</table>
{{if .Store.FooterText}}<p class="footer">{{.Store.FooterText}}</p>{{end}}
</body>
</html>
`

type line struct {
	Name     string
	Quantity string
	Total    string
}

type payment struct {
	Method string
	Amount string
}

type receiptData struct {
	Store    settings.Settings
	Order    *order.PersistedOrder
	Date     string
	Lines    []line
	Payments []payment
	Total    string
	Change   string
}

// Renderer renders orders with a parsed template. Safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the receipt template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parse receipt template")
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the HTML receipt for the given order and store settings.
func (r *Renderer) Render(w io.Writer, o *order.PersistedOrder, s settings.Settings) error {
	data := receiptData{
		Store: s,
		Order: o,
		Date:  o.OrderDate.Format("2006-01-02 15:04"),
		Total: money(o.Total),
	}
	for _, it := range o.Items {
		data.Lines = append(data.Lines, line{
			Name:     it.ProductName,
			Quantity: trimZero(it.Quantity),
			Total:    money(it.TotalPrice),
		})
	}
	for _, p := range o.Payments {
		data.Payments = append(data.Payments, payment{
			Method: p.Method,
			Amount: money(p.Amount),
		})
	}
	if o.CashChange > 0 {
		data.Change = money(o.CashChange)
	}
	return r.tmpl.Execute(w, data)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// trimZero formats quantities without a trailing ".0" for whole numbers.
func trimZero(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
