package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/counterjob/backend/internal/models"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₱%.2f", v) },
}).Parse(`<h2>Thank you for shopping with CounterJob</h2>
<p>Transaction <strong>{{.Barcode}}</strong><br>{{.Date}}</p>
<table>
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>
{{range .Items}}<tr><td>{{.Item}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td><td align="right">{{money .Subtotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Subtotal}}<br>Tax: {{money .Tax}}<br><strong>Total: {{money .Total}}</strong></p>
<p>Show this code at the exit or scan it in the app to view your receipt.</p>
`))

// RenderReceipt builds the subject and HTML body of a receipt email.
func RenderReceipt(tx *models.Transaction) (string, string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, tx); err != nil {
		return "", "", fmt.Errorf("render receipt email: %w", err)
	}
	return "Your CounterJob receipt " + tx.Barcode, buf.String(), nil
}
