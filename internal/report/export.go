package report

import (
	"encoding/csv"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
)

// WriteCSV writes the report as section,key,value rows.
func WriteCSV(w io.Writer, r domain.Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "shop", r.ShopName},
		{"summary", "location_id", r.LocationID},
		{"summary", "range", string(r.Range)},
		{"summary", "from", r.From.Format(time.RFC3339)},
		{"summary", "to", r.To.Format(time.RFC3339)},
		{"summary", "sales", strconv.Itoa(r.Summary.SaleCount)},
		{"summary", "gross_sales", money(r.Summary.GrossSales)},
		{"summary", "deposits", money(r.Summary.Deposits)},
		{"summary", "discounts", money(r.Summary.Discounts)},
		{"summary", "net_sales", money(r.Summary.NetSales)},
		{"summary", "total_expenses", money(r.TotalExpenses)},
		{"summary", "simple_profit", money(r.SimpleProfit)},
	}
	for _, p := range r.Summary.ByPayment {
		rows = append(rows,
			[]string{"payment", string(p.PaymentType) + "_count", strconv.Itoa(p.Count)},
			[]string{"payment", string(p.PaymentType) + "_total", money(p.Total)},
		)
	}
	for _, p := range r.Products {
		rows = append(rows,
			[]string{"product", p.Name + "_qty", strconv.Itoa(p.Qty)},
			[]string{"product", p.Name + "_gross", money(p.Gross)},
		)
	}
	rows = append(rows,
		[]string{"deposits", "collected_lines", strconv.Itoa(r.Deposits.CollectedLines)},
		[]string{"deposits", "collected", money(r.Deposits.Collected)},
		[]string{"deposits", "waived_lines", strconv.Itoa(r.Deposits.WaivedLines)},
		[]string{"deposits", "waived", money(r.Deposits.Waived)},
	)
	for _, d := range r.Discounts {
		rows = append(rows, []string{"discount", d.SaleID, money(d.Amount)})
	}
	for _, s := range r.Stock {
		rows = append(rows,
			[]string{"stock", s.Name + "_full", strconv.Itoa(s.FullQty)},
			[]string{"stock", s.Name + "_empty", strconv.Itoa(s.EmptyQty)},
		)
	}
	for _, e := range r.Expenses {
		rows = append(rows, []string{"expense", e.Category, money(e.Total)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func WriteEndOfDayCSV(w io.Writer, r domain.EndOfDayReport) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"kind", "id", "date", "description", "payment_type", "amount"},
	}
	for _, t := range r.Transactions {
		rows = append(rows, []string{t.Kind, t.ID, t.Date.Format(time.RFC3339), t.Description, string(t.PaymentType), money(t.Amount)})
	}
	rows = append(rows,
		[]string{"total", "", r.Date, "cash sales", string(domain.PaymentCash), money(r.CashSales)},
		[]string{"total", "", r.Date, "counted cash", "", money(r.CountedCash)},
		[]string{"total", "", r.Date, "variance", "", money(r.Variance)},
		[]string{"total", "", r.Date, "expenses", "", money(r.TotalExpenses)},
	)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

var htmlFuncs = template.FuncMap{
	"money": money,
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

var reportHTMLTmpl = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.ShopName}} report</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>{{.ShopName}}</h2>
  <p>Location: {{.LocationID}} | Range: {{.Range}} | {{date .From}} to {{date .To}}</p>
  <p>Sales: {{.Summary.SaleCount}} | Gross: {{money .Summary.GrossSales}} | Deposits: {{money .Summary.Deposits}} | Discounts: {{money .Summary.Discounts}} | Net: {{money .Summary.NetSales}}</p>
  <p>Expenses: {{money .TotalExpenses}} | Simple profit: {{money .SimpleProfit}}</p>

  <h3>By Payment</h3>
  <table>
    <thead><tr><th>Payment</th><th>Sales</th><th>Total</th></tr></thead>
    <tbody>{{range .Summary.ByPayment}}<tr><td>{{.PaymentType}}</td><td class="num">{{.Count}}</td><td class="num">{{money .Total}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Qty</th><th>Gross</th></tr></thead>
    <tbody>{{range .Products}}<tr><td>{{.Name}}</td><td class="num">{{.Qty}}</td><td class="num">{{money .Gross}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Deposits</h3>
  <p>Collected: {{money .Deposits.Collected}} ({{.Deposits.CollectedLines}} lines) | Waived: {{money .Deposits.Waived}} ({{.Deposits.WaivedLines}} lines)</p>

  <h3>Discounts</h3>
  <table>
    <thead><tr><th>Date</th><th>Sale</th><th>Customer</th><th>%</th><th>Amount</th></tr></thead>
    <tbody>{{range .Discounts}}<tr><td>{{date .Date}}</td><td>{{.SaleID}}</td><td>{{.CustomerName}}</td><td class="num">{{.Percentage}}</td><td class="num">{{money .Amount}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Stock</h3>
  <table>
    <thead><tr><th>Product</th><th>Full</th><th>Empty</th><th>Low</th></tr></thead>
    <tbody>{{range .Stock}}<tr><td>{{.Name}}</td><td class="num">{{.FullQty}}</td><td class="num">{{.EmptyQty}}</td><td>{{if .LowStock}}yes{{end}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Expenses</h3>
  <table>
    <thead><tr><th>Category</th><th>Total</th></tr></thead>
    <tbody>{{range .Expenses}}<tr><td>{{.Category}}</td><td class="num">{{money .Total}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

var endOfDayHTMLTmpl = template.Must(template.New("eod").Funcs(htmlFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>End of Day {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
  </style>
</head>
<body>
  <h2>{{.ShopName}} End of Day {{.Date}}</h2>
  <p>Location: {{.LocationID}} | Sales: {{.SaleCount}}</p>
  <p>Cash sales: {{money .CashSales}} | Counted: {{money .CountedCash}} | Variance: {{money .Variance}} | Expenses: {{money .TotalExpenses}}</p>
  <table>
    <thead><tr><th>Time</th><th>Type</th><th>Description</th><th>Payment</th><th>Amount</th></tr></thead>
    <tbody>{{range .Transactions}}<tr><td>{{date .Date}}</td><td>{{.Kind}}</td><td>{{.Description}}</td><td>{{.PaymentType}}</td><td class="num">{{money .Amount}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func WriteHTML(w io.Writer, r domain.Report) error {
	return reportHTMLTmpl.Execute(w, r)
}

func WriteEndOfDayHTML(w io.Writer, r domain.EndOfDayReport) error {
	return endOfDayHTMLTmpl.Execute(w, r)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
