package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/partshub/partshub/internal/offers"
)

const offerTemplateSrc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; margin: 40px; }
  h1 { font-size: 20px; margin-bottom: 0; }
  .meta { color: #666; margin-bottom: 24px; }
  table { width: 100%; border-collapse: collapse; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 16px; width: 40%; margin-left: auto; }
  .totals td { border: none; padding: 3px 8px; }
  .totals tr.grand td { border-top: 2px solid #222; font-weight: bold; }
</style>
</head>
<body>
  <h1>Offer {{.OfferNumber}}</h1>
  <p class="meta">
    {{if .CustomerName}}{{.CustomerName}}<br>{{end}}
    {{if .CustomerEmail}}{{.CustomerEmail}}<br>{{end}}
    Status: {{.Status}}{{if .ValidUntil}} &middot; Valid until {{.ValidUntil.Format "2006-01-02"}}{{end}}
  </p>
  <table>
    <tr><th>#</th><th>Item</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">Discount</th><th class="num">Total</th></tr>
    {{$currency := .Currency}}
    {{range $i, $it := .Items}}
    <tr>
      <td>{{inc $i}}</td>
      <td>{{$it.Title}}{{if $it.VariantTitle}} ({{$it.VariantTitle}}){{end}}</td>
      <td class="num">{{$it.Quantity}}</td>
      <td class="num">{{money $currency $it.UnitPrice}}</td>
      <td class="num">{{if $it.DiscountAmount}}-{{money $currency $it.DiscountAmount}}{{end}}</td>
      <td class="num">{{money $currency $it.TotalPrice}}</td>
    </tr>
    {{end}}
  </table>
  <table class="totals">
    <tr><td>Subtotal</td><td class="num">{{money .Currency .Subtotal}}</td></tr>
    <tr><td>Tax</td><td class="num">{{money .Currency .TaxAmount}}</td></tr>
    <tr class="grand"><td>Total</td><td class="num">{{money .Currency .TotalAmount}}</td></tr>
  </table>
</body>
</html>`

// OfferRenderer turns an offer into the customer-facing PDF via Gotenberg.
type OfferRenderer struct {
	client   *Client
	template *template.Template
}

func NewOfferRenderer(client *Client) *OfferRenderer {
	printer := message.NewPrinter(language.English)
	tmpl := template.Must(template.New("offer").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"money": func(currency string, amount int64) string {
			return printer.Sprintf("%s %.2f", currency, float64(amount)/100)
		},
	}).Parse(offerTemplateSrc))
	return &OfferRenderer{client: client, template: tmpl}
}

// RenderOffer renders the offer document as PDF bytes.
func (r *OfferRenderer) RenderOffer(ctx context.Context, offer *offers.Offer) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.template.Execute(&buf, offer); err != nil {
		return nil, fmt.Errorf("report: render offer html: %w", err)
	}
	return r.client.RenderHTML(ctx, buf.String())
}
