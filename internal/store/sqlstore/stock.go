package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/inventory"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

const balanceColumns = `id, product_id, location_id, full_qty, empty_qty`

func (s *Store) ListStock(ctx context.Context, locationID string) ([]domain.StockBalance, error) {
	rows := make([]domain.StockBalance, 0, 64)
	query := `SELECT ` + balanceColumns + ` FROM stock_balances`
	args := []any{}
	if locationID != "" && locationID != domain.AllLocations {
		query += ` WHERE location_id = ?`
		args = append(args, locationID)
	}
	query += ` ORDER BY location_id, product_id`
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// lockBalances loads the balance rows for the given products at the given
// locations, holding them for the rest of tx.
func (s *Store) lockBalances(ctx context.Context, tx *sqlx.Tx, locationIDs []string, productIDs []string) (inventory.Balances, error) {
	if len(locationIDs) == 0 || len(productIDs) == 0 {
		return inventory.Balances{}, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+balanceColumns+` FROM stock_balances
		WHERE location_id IN (?) AND product_id IN (?)
		ORDER BY location_id, product_id`+s.forUpdate(), locationIDs, productIDs)
	if err != nil {
		return nil, err
	}
	var rows []domain.StockBalance
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	return inventory.FromRows(rows), nil
}

func upsertBalances(ctx context.Context, tx *sqlx.Tx, rows []domain.StockBalance) error {
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO stock_balances (`+balanceColumns+`) VALUES (?,?,?,?,?)
			ON CONFLICT (product_id, location_id)
			DO UPDATE SET full_qty = excluded.full_qty, empty_qty = excluded.empty_qty
		`), row.ID, row.ProductID, row.LocationID, row.FullQty, row.EmptyQty); err != nil {
			return err
		}
	}
	return nil
}

// requireRefs checks the product and every location exist inside tx.
func requireRefs(ctx context.Context, tx *sqlx.Tx, productID string, locationIDs ...string) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM products WHERE id = ?`), productID); err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	for _, id := range locationIDs {
		if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM locations WHERE id = ?`), id); err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
	}
	return nil
}

func (s *Store) ReceiveStock(ctx context.Context, receive domain.StockReceive) (*domain.StockReceive, error) {
	if err := inventory.CheckReceive(receive); err != nil {
		return nil, err
	}
	if receive.ID == "" {
		receive.ID = xid.New("rcv")
	}
	if receive.Date.IsZero() {
		receive.Date = time.Now().UTC()
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRefs(ctx, tx, receive.ProductID, receive.LocationID); err != nil {
		return nil, err
	}
	before, err := s.lockBalances(ctx, tx, []string{receive.LocationID}, []string{receive.ProductID})
	if err != nil {
		return nil, err
	}
	if err := upsertBalances(ctx, tx, inventory.Diff(before, inventory.Receive(before, receive))); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stock_receives (id, created_at, location_id, product_id, qty, user_id)
		VALUES (?,?,?,?,?,?)
	`), receive.ID, s.ts(receive.Date), receive.LocationID, receive.ProductID, receive.Qty, receive.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &receive, nil
}

func (s *Store) TransferStock(ctx context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error) {
	if transfer.ID == "" {
		transfer.ID = xid.New("trf")
	}
	if transfer.Date.IsZero() {
		transfer.Date = time.Now().UTC()
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRefs(ctx, tx, transfer.ProductID, transfer.FromLocationID, transfer.ToLocationID); err != nil {
		return nil, err
	}
	before, err := s.lockBalances(ctx, tx, []string{transfer.FromLocationID, transfer.ToLocationID}, []string{transfer.ProductID})
	if err != nil {
		return nil, err
	}
	if err := inventory.CheckTransfer(before, transfer); err != nil {
		return nil, err
	}
	if err := upsertBalances(ctx, tx, inventory.Diff(before, inventory.Transfer(before, transfer))); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stock_transfers (id, created_at, from_location_id, to_location_id, product_id, qty, user_id)
		VALUES (?,?,?,?,?,?,?)
	`), transfer.ID, s.ts(transfer.Date), transfer.FromLocationID, transfer.ToLocationID, transfer.ProductID,
		transfer.Qty, transfer.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (s *Store) AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.StockAdjustment, error) {
	if err := inventory.CheckAdjust(adjustment); err != nil {
		return nil, err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	before, err := s.lockBalances(ctx, tx, []string{adjustment.LocationID}, []string{adjustment.ProductID})
	if err != nil {
		return nil, err
	}
	after, record := inventory.Adjust(before, adjustment)
	if record == nil {
		return nil, store.ErrNotFound
	}
	if record.ID == "" {
		record.ID = xid.New("adj")
	}
	if record.Date.IsZero() {
		record.Date = time.Now().UTC()
	}
	if err := upsertBalances(ctx, tx, inventory.Diff(before, after)); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stock_adjustments (
			id, created_at, location_id, product_id,
			old_full_qty, new_full_qty, old_empty_qty, new_empty_qty, reason, user_id
		) VALUES (?,?,?,?,?,?,?,?,?,?)
	`), record.ID, s.ts(record.Date), record.LocationID, record.ProductID,
		record.OldFullQty, record.NewFullQty, record.OldEmptyQty, record.NewEmptyQty, record.Reason, record.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

type receiveRow struct {
	domain.StockReceive
	CreatedAt stamp `db:"created_at"`
}

type transferRow struct {
	domain.StockTransfer
	CreatedAt stamp `db:"created_at"`
}

type adjustmentRow struct {
	domain.StockAdjustment
	CreatedAt stamp `db:"created_at"`
}

func (s *Store) ListMovements(ctx context.Context, filter store.Filter) (domain.StockMovements, error) {
	out := domain.StockMovements{
		Receives:    make([]domain.StockReceive, 0, 16),
		Transfers:   make([]domain.StockTransfer, 0, 16),
		Adjustments: make([]domain.StockAdjustment, 0, 16),
	}
	tail := ` ORDER BY created_at DESC, id DESC` + limitClause(filter.Limit)

	w := s.filterWhere(filter, "created_at", "location_id")
	var receives []receiveRow
	if err := s.db.SelectContext(ctx, &receives, s.db.Rebind(`
		SELECT id, created_at, location_id, product_id, qty, user_id FROM stock_receives`+w.String()+tail), w.args...); err != nil {
		return out, err
	}
	for _, r := range receives {
		r.StockReceive.Date = r.CreatedAt.Time()
		out.Receives = append(out.Receives, r.StockReceive)
	}

	w = s.filterWhere(filter, "created_at", "from_location_id", "to_location_id")
	var transfers []transferRow
	if err := s.db.SelectContext(ctx, &transfers, s.db.Rebind(`
		SELECT id, created_at, from_location_id, to_location_id, product_id, qty, user_id
		FROM stock_transfers`+w.String()+tail), w.args...); err != nil {
		return out, err
	}
	for _, t := range transfers {
		t.StockTransfer.Date = t.CreatedAt.Time()
		out.Transfers = append(out.Transfers, t.StockTransfer)
	}

	w = s.filterWhere(filter, "created_at", "location_id")
	var adjustments []adjustmentRow
	if err := s.db.SelectContext(ctx, &adjustments, s.db.Rebind(`
		SELECT id, created_at, location_id, product_id,
			old_full_qty, new_full_qty, old_empty_qty, new_empty_qty, reason, user_id
		FROM stock_adjustments`+w.String()+tail), w.args...); err != nil {
		return out, err
	}
	for _, a := range adjustments {
		a.StockAdjustment.Date = a.CreatedAt.Time()
		out.Adjustments = append(out.Adjustments, a.StockAdjustment)
	}
	return out, nil
}
