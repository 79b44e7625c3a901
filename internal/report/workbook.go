package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

// WriteXLSX writes the report as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, r domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"Summary", summaryRows(r)},
		{"Products", productRows(r)},
		{"Deposits", [][]any{
			{"Kind", "Lines", "Amount"},
			{"Collected", r.Deposits.CollectedLines, r.Deposits.Collected.InexactFloat64()},
			{"Waived", r.Deposits.WaivedLines, r.Deposits.Waived.InexactFloat64()},
		}},
		{"Discounts", discountRows(r)},
		{"Stock", stockRows(r)},
		{"Expenses", expenseRows(r)},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return err
		}
		for n, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, n+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(sheet.name, "A", "A", 36); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func summaryRows(r domain.Report) [][]any {
	rows := [][]any{
		{"Shop", r.ShopName},
		{"Location", r.LocationID},
		{"Range", string(r.Range)},
		{"From", r.From.Format(DateLayout)},
		{"To", r.To.Format(DateLayout)},
		{"Sales", r.Summary.SaleCount},
		{"Gross sales", r.Summary.GrossSales.InexactFloat64()},
		{"Deposits", r.Summary.Deposits.InexactFloat64()},
		{"Discounts", r.Summary.Discounts.InexactFloat64()},
		{"Net sales", r.Summary.NetSales.InexactFloat64()},
		{"Total expenses", r.TotalExpenses.InexactFloat64()},
		{"Simple profit", r.SimpleProfit.InexactFloat64()},
		{},
		{"Payment", "Sales", "Total"},
	}
	for _, p := range r.Summary.ByPayment {
		rows = append(rows, []any{string(p.PaymentType), p.Count, p.Total.InexactFloat64()})
	}
	return rows
}

func productRows(r domain.Report) [][]any {
	rows := [][]any{{"Product", "Qty", "Gross"}}
	for _, p := range r.Products {
		rows = append(rows, []any{p.Name, p.Qty, p.Gross.InexactFloat64()})
	}
	return rows
}

func discountRows(r domain.Report) [][]any {
	rows := [][]any{{"Date", "Sale", "Customer", "Percentage", "Amount"}}
	for _, d := range r.Discounts {
		rows = append(rows, []any{d.Date.Format("2006-01-02 15:04"), d.SaleID, d.CustomerName, d.Percentage, d.Amount.InexactFloat64()})
	}
	return rows
}

func stockRows(r domain.Report) [][]any {
	rows := [][]any{{"Product", "Full", "Empty", "Low stock"}}
	for _, s := range r.Stock {
		low := ""
		if s.LowStock {
			low = "yes"
		}
		rows = append(rows, []any{s.Name, s.FullQty, s.EmptyQty, low})
	}
	return rows
}

func expenseRows(r domain.Report) [][]any {
	rows := [][]any{{"Category", "Total"}}
	for _, e := range r.Expenses {
		rows = append(rows, []any{e.Category, e.Total.InexactFloat64()})
	}
	return rows
}

// ImportLine is one accepted row of a stock receipt sheet.
type ImportLine struct {
	Row       int
	ProductID string
	Qty       int
}

// ParseStockImport reads the first sheet of an XLSX workbook whose rows are
// (product id or name, quantity). A leading header row is skipped. Rows that
// do not resolve to a stockable product or carry a bad quantity are reported
// as issues instead of failing the whole file.
func ParseStockImport(r io.Reader, products []domain.Product) ([]ImportLine, []domain.StockImportIssue, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: workbook could not be read", store.ErrInvalidTransaction)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", store.ErrInvalidTransaction)
	}
	rows, err := f.GetRows(sheetList[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sheet could not be read", store.ErrInvalidTransaction)
	}

	byID := make(map[string]domain.Product, len(products))
	byName := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[strings.ToLower(product.ID)] = product
		byName[normalizeName(product.Name)] = product
	}

	lines := make([]ImportLine, 0, len(rows))
	issues := make([]domain.StockImportIssue, 0)
	for i, row := range rows {
		rowNo := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		ref := strings.TrimSpace(row[0])
		if i == 0 && isHeader(ref) {
			continue
		}

		product, ok := byID[strings.ToLower(ref)]
		if !ok {
			product, ok = byName[normalizeName(ref)]
		}
		if !ok {
			issues = append(issues, domain.StockImportIssue{Row: rowNo, Value: ref, Reason: "unknown product"})
			continue
		}
		if product.IsBundle {
			issues = append(issues, domain.StockImportIssue{Row: rowNo, Value: ref, Reason: "bundles are stocked through their components"})
			continue
		}

		raw := ""
		if len(row) > 1 {
			raw = strings.TrimSpace(row[1])
		}
		qty, ok := parseQty(raw)
		if !ok {
			issues = append(issues, domain.StockImportIssue{Row: rowNo, Value: raw, Reason: "quantity must be a positive whole number"})
			continue
		}
		lines = append(lines, ImportLine{Row: rowNo, ProductID: product.ID, Qty: qty})
	}

	if len(lines) == 0 && len(issues) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook is empty", store.ErrInvalidTransaction)
	}
	return lines, issues, nil
}

func isHeader(cell string) bool {
	upper := strings.ToUpper(cell)
	return strings.Contains(upper, "PRODUCT") || upper == "ID" || upper == "ITEM"
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func parseQty(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, n > 0
	}
	// numeric cells may come back formatted as "12.0"
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
