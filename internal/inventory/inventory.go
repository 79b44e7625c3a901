package inventory

import (
	"fmt"
	"sort"
	"strings"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

var (
	ErrSameLocation   = fmt.Errorf("%w: source and destination locations cannot be the same", store.ErrInvalidTransaction)
	ErrReasonRequired = fmt.Errorf("%w: adjustment reason is required", store.ErrInvalidTransaction)
	ErrQuantity       = fmt.Errorf("%w: quantity must be positive", store.ErrInvalidTransaction)
)

type Key struct {
	ProductID  string
	LocationID string
}

// Balances is a snapshot of stock rows keyed by (product, location).
// Functions in this package never mutate the snapshot they are given.
type Balances map[Key]domain.StockBalance

func FromRows(rows []domain.StockBalance) Balances {
	b := make(Balances, len(rows))
	for _, row := range rows {
		b[Key{ProductID: row.ProductID, LocationID: row.LocationID}] = row
	}
	return b
}

func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (b Balances) Get(productID string, locationID string) (domain.StockBalance, bool) {
	row, ok := b[Key{ProductID: productID, LocationID: locationID}]
	return row, ok
}

// FullAt maps product id to full quantity at one location.
func (b Balances) FullAt(locationID string) map[string]int {
	out := make(map[string]int)
	for k, row := range b {
		if k.LocationID == locationID {
			out[k.ProductID] = row.FullQty
		}
	}
	return out
}

// Rows returns the snapshot ordered by location then product.
func (b Balances) Rows() []domain.StockBalance {
	rows := make([]domain.StockBalance, 0, len(b))
	for _, row := range b {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationID == rows[j].LocationID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].LocationID < rows[j].LocationID
	})
	return rows
}

// BalanceID names a row created by a movement into a location that had none.
func BalanceID(productID string, locationID string) string {
	return "sb-" + locationID + "-" + productID
}

// Receive adds full units at the location, opening the row with no empties if absent.
func Receive(b Balances, rec domain.StockReceive) Balances {
	out := b.Clone()
	addFull(out, rec.ProductID, rec.LocationID, rec.Qty)
	return out
}

// Transfer moves full units between locations. The source is only decremented
// when it has a row; the destination row is created when missing. Callers
// run CheckTransfer first.
func Transfer(b Balances, tr domain.StockTransfer) Balances {
	out := b.Clone()
	from := Key{ProductID: tr.ProductID, LocationID: tr.FromLocationID}
	if row, ok := out[from]; ok {
		row.FullQty -= tr.Qty
		out[from] = row
	}
	addFull(out, tr.ProductID, tr.ToLocationID, tr.Qty)
	return out
}

// Adjust overwrites both quantities and returns the filled audit record.
// Without an existing row nothing changes and the record is nil.
func Adjust(b Balances, adj domain.StockAdjustment) (Balances, *domain.StockAdjustment) {
	key := Key{ProductID: adj.ProductID, LocationID: adj.LocationID}
	row, ok := b[key]
	if !ok {
		return b, nil
	}

	record := adj
	record.OldFullQty = row.FullQty
	record.OldEmptyQty = row.EmptyQty

	out := b.Clone()
	row.FullQty = adj.NewFullQty
	row.EmptyQty = adj.NewEmptyQty
	out[key] = row
	return out, &record
}

// DeductSale subtracts decomposed sale quantities from full stock at the
// sale location. Empties are untouched and products without a row are skipped.
func DeductSale(b Balances, locationID string, deductions map[string]int) Balances {
	out := b.Clone()
	for productID, qty := range deductions {
		key := Key{ProductID: productID, LocationID: locationID}
		row, ok := out[key]
		if !ok {
			continue
		}
		row.FullQty -= qty
		out[key] = row
	}
	return out
}

// Diff lists rows of after that are new or changed relative to before.
func Diff(before Balances, after Balances) []domain.StockBalance {
	changed := make([]domain.StockBalance, 0, 4)
	for k, row := range after {
		prev, ok := before[k]
		if ok && prev == row {
			continue
		}
		changed = append(changed, row)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	return changed
}

func CheckReceive(rec domain.StockReceive) error {
	if strings.TrimSpace(rec.ProductID) == "" || strings.TrimSpace(rec.LocationID) == "" {
		return store.ErrInvalidTransaction
	}
	if rec.Qty < 1 {
		return ErrQuantity
	}
	return nil
}

func CheckTransfer(b Balances, tr domain.StockTransfer) error {
	if strings.TrimSpace(tr.ProductID) == "" || tr.FromLocationID == "" || tr.ToLocationID == "" {
		return store.ErrInvalidTransaction
	}
	if tr.Qty < 1 {
		return ErrQuantity
	}
	if tr.FromLocationID == tr.ToLocationID {
		return ErrSameLocation
	}
	row, ok := b.Get(tr.ProductID, tr.FromLocationID)
	if !ok || row.FullQty < tr.Qty {
		return fmt.Errorf("%w: not enough stock at the source location", store.ErrInsufficientStock)
	}
	return nil
}

func CheckAdjust(adj domain.StockAdjustment) error {
	if strings.TrimSpace(adj.Reason) == "" {
		return ErrReasonRequired
	}
	if adj.NewFullQty < 0 || adj.NewEmptyQty < 0 {
		return fmt.Errorf("%w: quantities must not be negative", store.ErrInvalidTransaction)
	}
	return nil
}

// CheckSale reports the first product whose full stock at the location
// cannot cover its deduction. A missing row counts as zero.
func CheckSale(b Balances, locationID string, deductions map[string]int) error {
	ids := make([]string, 0, len(deductions))
	for id := range deductions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		row, _ := b.Get(id, locationID)
		if row.FullQty < deductions[id] {
			return fmt.Errorf("%w: product %s has %d at %s, needs %d", store.ErrInsufficientStock, id, row.FullQty, locationID, deductions[id])
		}
	}
	return nil
}

func addFull(b Balances, productID string, locationID string, qty int) {
	key := Key{ProductID: productID, LocationID: locationID}
	row, ok := b[key]
	if !ok {
		row = domain.StockBalance{
			ID:         BalanceID(productID, locationID),
			ProductID:  productID,
			LocationID: locationID,
		}
	}
	row.FullQty += qty
	b[key] = row
}
