package sqlstore

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/inventory"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

const saleColumns = `id, created_at, location_id, user_id, price_type, subtotal, deposit_total, discount_amount,
	discount_type, discount_percent, customer_name, customer_id_photo_url,
	delivery_fee, tax, total, payment_type, payment_ref_no, payment_photo_url`

type saleRow struct {
	ID                 string              `db:"id"`
	CreatedAt          stamp               `db:"created_at"`
	LocationID         string              `db:"location_id"`
	UserID             string              `db:"user_id"`
	PriceType          domain.PriceType    `db:"price_type"`
	Subtotal           decimal.Decimal     `db:"subtotal"`
	DepositTotal       decimal.Decimal     `db:"deposit_total"`
	DiscountAmount     decimal.Decimal     `db:"discount_amount"`
	DiscountType       domain.DiscountType `db:"discount_type"`
	DiscountPercent    int                 `db:"discount_percent"`
	CustomerName       string              `db:"customer_name"`
	CustomerIDPhotoURL string              `db:"customer_id_photo_url"`
	DeliveryFee        decimal.Decimal     `db:"delivery_fee"`
	Tax                decimal.Decimal     `db:"tax"`
	Total              decimal.Decimal     `db:"total"`
	PaymentType        domain.PaymentType  `db:"payment_type"`
	PaymentRefNo       string              `db:"payment_ref_no"`
	PaymentPhotoURL    string              `db:"payment_photo_url"`
}

func (r saleRow) toDomain() domain.Sale {
	sale := domain.Sale{
		ID:              r.ID,
		Date:            r.CreatedAt.Time(),
		LocationID:      r.LocationID,
		UserID:          r.UserID,
		Items:           []domain.SaleItem{},
		Subtotal:        r.Subtotal,
		DepositTotal:    r.DepositTotal,
		DiscountAmount:  r.DiscountAmount,
		DeliveryFee:     r.DeliveryFee,
		PriceType:       r.PriceType,
		Tax:             r.Tax,
		Total:           r.Total,
		PaymentType:     r.PaymentType,
		PaymentRefNo:    r.PaymentRefNo,
		PaymentPhotoURL: r.PaymentPhotoURL,
	}
	if r.DiscountType != "" && r.DiscountType != domain.DiscountNone {
		sale.DiscountInfo = &domain.DiscountInfo{
			Type:               r.DiscountType,
			Percentage:         r.DiscountPercent,
			CustomerName:       r.CustomerName,
			CustomerIDPhotoURL: r.CustomerIDPhotoURL,
		}
	}
	return sale
}

type saleItemRow struct {
	SaleID string `db:"sale_id"`
	LineNo int    `db:"line_no"`
	domain.SaleItem
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, deductions map[string]int) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM locations WHERE id = ?`), sale.LocationID); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	productIDs := make([]string, 0, len(deductions))
	for id := range deductions {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)
	before, err := s.lockBalances(ctx, tx, []string{sale.LocationID}, productIDs)
	if err != nil {
		return nil, err
	}
	if err := inventory.CheckSale(before, sale.LocationID, deductions); err != nil {
		return nil, err
	}
	if err := upsertBalances(ctx, tx, inventory.Diff(before, inventory.DeductSale(before, sale.LocationID, deductions))); err != nil {
		return nil, err
	}

	info := domain.DiscountInfo{Type: domain.DiscountNone}
	if sale.DiscountInfo != nil {
		info = *sale.DiscountInfo
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO sales (`+saleColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`), sale.ID, s.ts(sale.Date), sale.LocationID, sale.UserID, sale.PriceType,
		sale.Subtotal, sale.DepositTotal, sale.DiscountAmount,
		info.Type, info.Percentage, info.CustomerName, info.CustomerIDPhotoURL,
		sale.DeliveryFee, sale.Tax, sale.Total, sale.PaymentType, sale.PaymentRefNo, sale.PaymentPhotoURL); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	for i, item := range sale.Items {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO sale_items (sale_id, line_no, product_id, product_name, qty, unit_price, returned_empty, deposit)
			VALUES (?,?,?,?,?,?,?,?)
		`), sale.ID, i+1, item.ProductID, item.ProductName, item.Qty, item.UnitPrice, item.ReturnedEmpty, item.Deposit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var row saleRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+saleColumns+` FROM sales WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	sales := []domain.Sale{row.toDomain()}
	if err := s.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, filter store.Filter) ([]domain.Sale, error) {
	w := s.filterWhere(filter, "created_at", "location_id")
	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+saleColumns+` FROM sales`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limitClause(filter.Limit)), w.args...); err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, row.toDomain())
	}
	if err := s.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) attachItems(ctx context.Context, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	index := make(map[string]int, len(sales))
	for i, sale := range sales {
		ids = append(ids, sale.ID)
		index[sale.ID] = i
	}
	query, args, err := sqlx.In(`
		SELECT sale_id, line_no, product_id, product_name, qty, unit_price, returned_empty, deposit
		FROM sale_items WHERE sale_id IN (?) ORDER BY sale_id, line_no`, ids)
	if err != nil {
		return err
	}
	var items []saleItemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, item := range items {
		i := index[item.SaleID]
		sales[i].Items = append(sales[i].Items, item.SaleItem)
	}
	return nil
}
