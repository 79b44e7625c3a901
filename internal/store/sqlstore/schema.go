package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"lpgpos/backend/internal/store/seed"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY,
		shop_name TEXT NOT NULL,
		tax_rate {{money}} NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		size_kg {{float}},
		type TEXT NOT NULL,
		price {{money}} NOT NULL,
		wholesale_price {{money}} NOT NULL,
		deposit_amt {{money}} NOT NULL DEFAULT 0,
		low_stock_threshold INTEGER NOT NULL DEFAULT 0,
		is_bundle BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS bundle_items (
		bundle_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		component_id TEXT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL,
		PRIMARY KEY (bundle_id, component_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		location_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS stock_balances (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		full_qty INTEGER NOT NULL DEFAULT 0,
		empty_qty INTEGER NOT NULL DEFAULT 0,
		UNIQUE (product_id, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_receives (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		location_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		qty INTEGER NOT NULL,
		user_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS stock_transfers (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		from_location_id TEXT NOT NULL,
		to_location_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		qty INTEGER NOT NULL,
		user_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS stock_adjustments (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		location_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		old_full_qty INTEGER NOT NULL,
		new_full_qty INTEGER NOT NULL,
		old_empty_qty INTEGER NOT NULL,
		new_empty_qty INTEGER NOT NULL,
		reason TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		location_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		price_type TEXT NOT NULL,
		subtotal {{money}} NOT NULL,
		deposit_total {{money}} NOT NULL,
		discount_amount {{money}} NOT NULL,
		discount_type TEXT NOT NULL DEFAULT '',
		discount_percent INTEGER NOT NULL DEFAULT 0,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_id_photo_url TEXT NOT NULL DEFAULT '',
		delivery_fee {{money}} NOT NULL,
		tax {{money}} NOT NULL,
		total {{money}} NOT NULL,
		payment_type TEXT NOT NULL,
		payment_ref_no TEXT NOT NULL DEFAULT '',
		payment_photo_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_location_created ON sales (location_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		line_no INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		qty INTEGER NOT NULL,
		unit_price {{money}} NOT NULL,
		returned_empty BOOLEAN NOT NULL,
		deposit {{money}} NOT NULL,
		PRIMARY KEY (sale_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		location_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		amount {{money}} NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		photo_data_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_location_created ON expenses (location_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		created_at {{ts}} NOT NULL,
		location_id TEXT NOT NULL DEFAULT '',
		actor_user_id TEXT NOT NULL DEFAULT '',
		actor_role TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates any missing tables. Column types differ per dialect: money
// is NUMERIC on PostgreSQL and exact decimal text on SQLite.
func (s *Store) Migrate(ctx context.Context) error {
	types := strings.NewReplacer(
		"{{money}}", "TEXT",
		"{{float}}", "REAL",
		"{{ts}}", "TEXT",
	)
	if s.postgres() {
		types = strings.NewReplacer(
			"{{money}}", "NUMERIC(14,2)",
			"{{float}}", "DOUBLE PRECISION",
			"{{ts}}", "TIMESTAMP",
		)
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, types.Replace(stmt)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SeedIfEmpty loads data when the database has no locations yet. It reports
// whether anything was written.
func (s *Store) SeedIfEmpty(ctx context.Context, data seed.Data) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM locations`); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO settings (id, shop_name, tax_rate) VALUES (1, ?, ?)`),
		data.Settings.ShopName, data.Settings.TaxRate); err != nil {
		return false, err
	}
	for _, l := range data.Locations {
		if err := insertLocation(ctx, tx, l); err != nil {
			return false, err
		}
	}
	// components first so bundle references resolve
	for _, bundles := range []bool{false, true} {
		for _, p := range data.Products {
			if p.IsBundle != bundles {
				continue
			}
			if err := insertProduct(ctx, tx, p); err != nil {
				return false, err
			}
		}
	}
	if err := upsertBalances(ctx, tx, data.Stock); err != nil {
		return false, err
	}
	for _, u := range data.Users {
		if err := insertUser(ctx, tx, u); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
