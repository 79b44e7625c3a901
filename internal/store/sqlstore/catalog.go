package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

const productColumns = `id, name, size_kg, type, price, wholesale_price, deposit_amt, low_stock_threshold, is_bundle`

type bundleItemRow struct {
	BundleID string `db:"bundle_id"`
	domain.BundleItem
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 64)
	if err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY name`); err != nil {
		return nil, err
	}

	var items []bundleItemRow
	if err := s.db.SelectContext(ctx, &items, `SELECT bundle_id, component_id, quantity FROM bundle_items ORDER BY bundle_id, component_id`); err != nil {
		return nil, err
	}
	byBundle := make(map[string][]domain.BundleItem, len(items))
	for _, item := range items {
		byBundle[item.BundleID] = append(byBundle[item.BundleID], item.BundleItem)
	}
	for i := range products {
		products[i].BundleItems = byBundle[products[i].ID]
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q sqlx.ExtContext, id string) (*domain.Product, error) {
	var product domain.Product
	if err := sqlx.GetContext(ctx, q, &product, q.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	if product.IsBundle {
		if err := sqlx.SelectContext(ctx, q, &product.BundleItems,
			q.Rebind(`SELECT component_id, quantity FROM bundle_items WHERE bundle_id = ? ORDER BY component_id`), id); err != nil {
			return nil, err
		}
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertProduct(ctx, tx, product); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE products
		SET name = ?, size_kg = ?, type = ?, price = ?, wholesale_price = ?, deposit_amt = ?,
			low_stock_threshold = ?, is_bundle = ?
		WHERE id = ?
	`), product.Name, product.SizeKg, product.Type, product.Price, product.WholesalePrice, product.DepositAmt,
		product.LowStockThreshold, product.IsBundle, product.ID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bundle_items WHERE bundle_id = ?`), product.ID); err != nil {
		return nil, err
	}
	if err := insertBundleItems(ctx, tx, product); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var refs int
	if err := tx.GetContext(ctx, &refs, tx.Rebind(`SELECT COUNT(*) FROM bundle_items WHERE component_id = ?`), id); err != nil {
		return err
	}
	if refs > 0 {
		return store.ErrConflict
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bundle_items WHERE bundle_id = ?`), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM stock_balances WHERE product_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func insertProduct(ctx context.Context, tx *sqlx.Tx, product domain.Product) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO products (`+productColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)
	`), product.ID, product.Name, product.SizeKg, product.Type, product.Price, product.WholesalePrice,
		product.DepositAmt, product.LowStockThreshold, product.IsBundle); err != nil {
		return err
	}
	return insertBundleItems(ctx, tx, product)
}

func insertBundleItems(ctx context.Context, tx *sqlx.Tx, product domain.Product) error {
	if !product.IsBundle {
		return nil
	}
	for _, item := range product.BundleItems {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO bundle_items (bundle_id, component_id, quantity) VALUES (?,?,?)
		`), product.ID, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

const locationColumns = `id, name, type, address, contact_number`

func (s *Store) ListLocations(ctx context.Context) ([]domain.Location, error) {
	locations := make([]domain.Location, 0, 8)
	if err := s.db.SelectContext(ctx, &locations, `SELECT `+locationColumns+` FROM locations ORDER BY id`); err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	var location domain.Location
	if err := s.db.GetContext(ctx, &location, s.db.Rebind(`SELECT `+locationColumns+` FROM locations WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &location, nil
}

func (s *Store) CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error) {
	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	if err := insertLocation(ctx, s.db, location); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &location, nil
}

func (s *Store) UpdateLocation(ctx context.Context, location domain.Location) (*domain.Location, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE locations SET name = ?, type = ?, address = ?, contact_number = ? WHERE id = ?
	`), location.Name, location.Type, location.Address, location.ContactNumber, location.ID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &location, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var assigned int
	if err := tx.GetContext(ctx, &assigned, tx.Rebind(`SELECT COUNT(*) FROM users WHERE location_id = ?`), id); err != nil {
		return err
	}
	if assigned > 0 {
		return store.ErrConflict
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM stock_balances WHERE location_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM locations WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLocation(ctx context.Context, exec sqlx.ExtContext, location domain.Location) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO locations (`+locationColumns+`) VALUES (?,?,?,?,?)
	`), location.ID, location.Name, location.Type, location.Address, location.ContactNumber)
	return err
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.db.GetContext(ctx, &settings, `SELECT shop_name, tax_rate FROM settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, nil
	}
	return settings, err
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO settings (id, shop_name, tax_rate) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET shop_name = excluded.shop_name, tax_rate = excluded.tax_rate
	`), settings.ShopName, settings.TaxRate)
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}
