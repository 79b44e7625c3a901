package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

const DateLayout = "2006-01-02"

// Window returns the half-open [from, to) interval a range covers when
// evaluated at now in the shop's time zone. Weeks start on Sunday.
func Window(rng domain.ReportRange, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var from time.Time
	switch domain.ReportRange(strings.ToLower(strings.TrimSpace(string(rng)))) {
	case "", domain.RangeToday:
		from = midnight
	case domain.RangeWeek:
		from = midnight.AddDate(0, 0, -int(midnight.Weekday()))
	case domain.RangeMonth:
		from = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown report range %q", store.ErrInvalidTransaction, rng)
	}
	to := midnight.AddDate(0, 0, 1)
	return from.UTC(), to.UTC(), nil
}

// Day parses an optional YYYY-MM-DD in the shop's time zone, defaulting to
// the day containing now, and returns its [from, to) bounds.
func Day(date string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	var day time.Time
	if date == "" {
		local := now.In(loc)
		day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidTransaction)
		}
		day = parsed
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

type Input struct {
	ShopName    string
	LocationID  string
	Range       domain.ReportRange
	From        time.Time
	To          time.Time
	GeneratedAt time.Time
	Sales       []domain.Sale
	Expenses    []domain.Expense
	Products    []domain.Product
	Balances    []domain.StockBalance
}

func Build(in Input) domain.Report {
	summary := Summarize(in.Sales)
	categories, totalExpenses := ExpenseTotals(in.Expenses)
	rng := in.Range
	if rng == "" {
		rng = domain.RangeToday
	}

	return domain.Report{
		ShopName:      in.ShopName,
		LocationID:    in.LocationID,
		Range:         rng,
		From:          in.From,
		To:            in.To,
		GeneratedAt:   in.GeneratedAt,
		Summary:       summary,
		Products:      ProductBreakdown(in.Sales),
		Deposits:      Deposits(in.Sales),
		Discounts:     Discounts(in.Sales),
		Stock:         StockLevels(in.Products, in.Balances),
		Expenses:      categories,
		TotalExpenses: totalExpenses,
		SimpleProfit:  summary.GrossSales.Sub(totalExpenses),
	}
}

func Summarize(sales []domain.Sale) domain.SalesSummary {
	summary := domain.SalesSummary{
		SaleCount:  len(sales),
		GrossSales: decimal.Zero,
		Deposits:   decimal.Zero,
		Discounts:  decimal.Zero,
		NetSales:   decimal.Zero,
	}
	byPayment := make(map[domain.PaymentType]*domain.PaymentTotal, 3)
	for _, sale := range sales {
		summary.GrossSales = summary.GrossSales.Add(sale.Subtotal)
		summary.Deposits = summary.Deposits.Add(sale.DepositTotal)
		summary.Discounts = summary.Discounts.Add(sale.DiscountAmount)
		summary.NetSales = summary.NetSales.Add(sale.Total)

		entry, ok := byPayment[sale.PaymentType]
		if !ok {
			entry = &domain.PaymentTotal{PaymentType: sale.PaymentType, Total: decimal.Zero}
			byPayment[sale.PaymentType] = entry
		}
		entry.Count++
		entry.Total = entry.Total.Add(sale.Total)
	}

	summary.ByPayment = make([]domain.PaymentTotal, 0, len(byPayment))
	for _, entry := range byPayment {
		summary.ByPayment = append(summary.ByPayment, *entry)
	}
	sort.Slice(summary.ByPayment, func(i, j int) bool {
		a, b := summary.ByPayment[i], summary.ByPayment[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.PaymentType < b.PaymentType
	})
	return summary
}

// ProductBreakdown totals quantity and gross per product, largest gross first.
func ProductBreakdown(sales []domain.Sale) []domain.ProductSales {
	index := make(map[string]int)
	out := make([]domain.ProductSales, 0, 16)
	for _, sale := range sales {
		for _, item := range sale.Items {
			i, ok := index[item.ProductID]
			if !ok {
				i = len(out)
				index[item.ProductID] = i
				out = append(out, domain.ProductSales{ProductID: item.ProductID, Name: item.ProductName, Gross: decimal.Zero})
			}
			out[i].Qty += item.Qty
			out[i].Gross = out[i].Gross.Add(lineAmount(item.UnitPrice, item.Qty))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Gross.Cmp(out[j].Gross); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Deposits splits deposit-carrying lines into collected (empty not returned)
// and waived (empty returned).
func Deposits(sales []domain.Sale) domain.DepositSummary {
	out := domain.DepositSummary{Collected: decimal.Zero, Waived: decimal.Zero}
	for _, sale := range sales {
		for _, item := range sale.Items {
			if !item.Deposit.IsPositive() {
				continue
			}
			amount := lineAmount(item.Deposit, item.Qty)
			if item.ReturnedEmpty {
				out.WaivedLines++
				out.Waived = out.Waived.Add(amount)
				continue
			}
			out.CollectedLines++
			out.Collected = out.Collected.Add(amount)
		}
	}
	return out
}

func Discounts(sales []domain.Sale) []domain.DiscountEntry {
	out := make([]domain.DiscountEntry, 0)
	for _, sale := range sales {
		if !sale.DiscountAmount.IsPositive() {
			continue
		}
		entry := domain.DiscountEntry{SaleID: sale.ID, Date: sale.Date, Amount: sale.DiscountAmount}
		if sale.DiscountInfo != nil {
			entry.CustomerName = sale.DiscountInfo.CustomerName
			entry.Percentage = sale.DiscountInfo.Percentage
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// StockLevels sums full and empty counts per product over the given balance
// rows, most full cylinders first. Rows for deleted products are reported as
// "Unknown".
func StockLevels(products []domain.Product, balances []domain.StockBalance) []domain.StockLevel {
	catalog := make(map[string]domain.Product, len(products))
	for _, product := range products {
		catalog[product.ID] = product
	}

	index := make(map[string]int)
	out := make([]domain.StockLevel, 0, len(products))
	for _, row := range balances {
		i, ok := index[row.ProductID]
		if !ok {
			i = len(out)
			index[row.ProductID] = i
			name := "Unknown"
			if product, found := catalog[row.ProductID]; found {
				name = product.Name
			}
			out = append(out, domain.StockLevel{ProductID: row.ProductID, Name: name})
		}
		out[i].FullQty += row.FullQty
		out[i].EmptyQty += row.EmptyQty
	}
	for i := range out {
		if product, ok := catalog[out[i].ProductID]; ok {
			out[i].LowStock = out[i].FullQty <= product.LowStockThreshold
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullQty != out[j].FullQty {
			return out[i].FullQty > out[j].FullQty
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func ExpenseTotals(expenses []domain.Expense) ([]domain.ExpenseCategoryTotal, decimal.Decimal) {
	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		total = total.Add(expense.Amount)
		byCategory[expense.Category] = byCategory[expense.Category].Add(expense.Amount)
	}

	out := make([]domain.ExpenseCategoryTotal, 0, len(byCategory))
	for category, amount := range byCategory {
		out = append(out, domain.ExpenseCategoryTotal{Category: category, Total: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, total
}

type EndOfDayInput struct {
	ShopName    string
	LocationID  string
	Date        string
	Sales       []domain.Sale
	Expenses    []domain.Expense
	CountedCash decimal.Decimal
}

// EndOfDay reconciles the drawer: the counted cash is compared against the
// day's cash sales, and sales and expenses are merged newest first with
// expenses carried as negative amounts.
func EndOfDay(in EndOfDayInput) domain.EndOfDayReport {
	out := domain.EndOfDayReport{
		ShopName:      in.ShopName,
		LocationID:    in.LocationID,
		Date:          in.Date,
		SaleCount:     len(in.Sales),
		CashSales:     decimal.Zero,
		CountedCash:   in.CountedCash,
		TotalExpenses: decimal.Zero,
		Transactions:  make([]domain.EndOfDayEntry, 0, len(in.Sales)+len(in.Expenses)),
	}

	for _, sale := range in.Sales {
		if sale.PaymentType == domain.PaymentCash {
			out.CashSales = out.CashSales.Add(sale.Total)
		}
		out.Transactions = append(out.Transactions, domain.EndOfDayEntry{
			Kind:        "sale",
			ID:          sale.ID,
			Date:        sale.Date,
			Description: "Sale #" + shortID(sale.ID),
			PaymentType: sale.PaymentType,
			Amount:      sale.Total,
		})
	}
	for _, expense := range in.Expenses {
		out.TotalExpenses = out.TotalExpenses.Add(expense.Amount)
		out.Transactions = append(out.Transactions, domain.EndOfDayEntry{
			Kind:        "expense",
			ID:          expense.ID,
			Date:        expense.Date,
			Description: expense.Category,
			Amount:      expense.Amount.Neg(),
		})
	}
	sort.SliceStable(out.Transactions, func(i, j int) bool {
		return out.Transactions[i].Date.After(out.Transactions[j].Date)
	})
	out.Variance = out.CountedCash.Sub(out.CashSales)
	return out
}

func lineAmount(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
