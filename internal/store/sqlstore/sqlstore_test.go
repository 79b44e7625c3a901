package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/store/seed"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "lpgpos.db")
	s, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users, err := seed.Users("password123")
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	data := seed.Data{
		Settings:  seed.Settings(),
		Locations: seed.Locations(),
		Products:  seed.Products(),
		Stock:     seed.Stock(),
		Users:     users,
	}
	if seeded, err := s.SeedIfEmpty(ctx, data); err != nil || !seeded {
		t.Fatalf("seed: seeded=%t err=%v", seeded, err)
	}
	return s
}

func fullQty(t *testing.T, s *Store, productID, locationID string) int {
	t.Helper()
	rows, err := s.ListStock(context.Background(), locationID)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	for _, row := range rows {
		if row.ProductID == productID {
			return row.FullQty
		}
	}
	return -1
}

func TestSeedIsIdempotentAndLoadsBundles(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	again, err := s.SeedIfEmpty(ctx, seed.Data{Locations: seed.Locations()})
	if err != nil || again {
		t.Fatalf("expected second seed to be skipped, got seeded=%t err=%v", again, err)
	}

	bundle, err := s.GetProduct(ctx, "p28")
	if err != nil {
		t.Fatalf("get bundle: %v", err)
	}
	if !bundle.IsBundle || len(bundle.BundleItems) != 4 {
		t.Fatalf("expected bundle with 4 components, got %+v", bundle)
	}
	if !bundle.Price.Equal(decimal.RequireFromString("2750")) {
		t.Fatalf("expected price 2750, got %s", bundle.Price)
	}

	cylinder, err := s.GetProduct(ctx, "p13")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if cylinder.SizeKg == nil || *cylinder.SizeKg != 2.7 {
		t.Fatalf("expected size 2.7 kg, got %v", cylinder.SizeKg)
	}
	if !cylinder.WholesalePrice.Equal(decimal.RequireFromString("203.85")) {
		t.Fatalf("expected exact wholesale price, got %s", cylinder.WholesalePrice)
	}
}

func TestTransferMovesStockAndRecordsMovement(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.TransferStock(ctx, domain.StockTransfer{
		FromLocationID: "l1", ToLocationID: "l3", ProductID: "p16", Qty: 4, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := fullQty(t, s, "p16", "l1"); got != 16 {
		t.Fatalf("expected source 16, got %d", got)
	}
	if got := fullQty(t, s, "p16", "l3"); got != 4 {
		t.Fatalf("expected new destination row with 4, got %d", got)
	}

	_, err = s.TransferStock(ctx, domain.StockTransfer{
		FromLocationID: "l1", ToLocationID: "l3", ProductID: "p16", Qty: 100,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	moves, err := s.ListMovements(ctx, store.Filter{LocationID: "l3"})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(moves.Transfers) != 1 || moves.Transfers[0].Qty != 4 {
		t.Fatalf("expected one recorded transfer into l3, got %+v", moves.Transfers)
	}
}

func TestAdjustWithoutRowIsNotFound(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.AdjustStock(ctx, domain.StockAdjustment{
		LocationID: "l3", ProductID: "p1", NewFullQty: 5, Reason: "found in storage",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	record, err := s.AdjustStock(ctx, domain.StockAdjustment{
		LocationID: "l1", ProductID: "p15", NewFullQty: 40, NewEmptyQty: 12, Reason: "cycle count",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if record.OldFullQty != 45 || record.NewFullQty != 40 {
		t.Fatalf("expected 45 -> 40, got %d -> %d", record.OldFullQty, record.NewFullQty)
	}
}

func TestCreateSaleDeductsAtomically(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	sale := domain.Sale{
		LocationID:   "l1",
		UserID:       "u6",
		PriceType:    domain.PriceRetail,
		PaymentType:  domain.PaymentCash,
		Subtotal:     decimal.RequireFromString("2750"),
		DepositTotal: decimal.Zero,
		Total:        decimal.RequireFromString("2750"),
		Items: []domain.SaleItem{{
			ProductID: "p28", ProductName: "Fiesta Gas Double Burner Set", Qty: 1,
			UnitPrice: decimal.RequireFromString("2750"), ReturnedEmpty: true, Deposit: decimal.RequireFromString("1200"),
		}},
		DiscountInfo: &domain.DiscountInfo{Type: domain.DiscountSeniorPWD, Percentage: 5, CustomerName: "Lola", CustomerIDPhotoURL: "data:image/png;base64,AA=="},
	}
	created, err := s.CreateSale(ctx, sale, map[string]int{"p12": 1, "p24": 1, "p8": 1, "p22": 1})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if got := fullQty(t, s, "p12", "l1"); got != 29 {
		t.Fatalf("expected p12 at 29, got %d", got)
	}

	loaded, err := s.GetSale(ctx, created.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(loaded.Items) != 1 || !loaded.Items[0].ReturnedEmpty {
		t.Fatalf("expected one returned-empty line, got %+v", loaded.Items)
	}
	if loaded.DiscountInfo == nil || loaded.DiscountInfo.Percentage != 5 {
		t.Fatalf("expected discount info to round-trip, got %+v", loaded.DiscountInfo)
	}

	_, err = s.CreateSale(ctx, sale, map[string]int{"p12": 1, "p24": 100})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := fullQty(t, s, "p12", "l1"); got != 29 {
		t.Fatalf("failed sale must not deduct, p12 at %d", got)
	}
}

func TestListSalesFiltersByLocationAndWindow(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	for i, loc := range []string{"l1", "l2", "l1"} {
		_, err := s.CreateSale(ctx, domain.Sale{
			LocationID:  loc,
			Date:        base.Add(time.Duration(i) * 24 * time.Hour),
			PriceType:   domain.PriceRetail,
			PaymentType: domain.PaymentCash,
			Items:       []domain.SaleItem{{ProductID: "p15", ProductName: "Petron Gasul 11 kg Cylinder", Qty: 1, UnitPrice: decimal.RequireFromString("1090"), ReturnedEmpty: true}},
			Subtotal:    decimal.RequireFromString("1090"),
			Total:       decimal.RequireFromString("1090"),
		}, map[string]int{"p15": 1})
		if err != nil {
			t.Fatalf("create sale %d: %v", i, err)
		}
	}

	sales, err := s.ListSales(ctx, store.Filter{LocationID: "l1", From: base, To: base.Add(48 * time.Hour)})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || !sales[0].Date.Equal(base) {
		t.Fatalf("expected the first l1 sale only, got %d sales", len(sales))
	}

	all, err := s.ListSales(ctx, store.Filter{LocationID: domain.AllLocations})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 sales across locations, got %d (%v)", len(all), err)
	}
	if !all[0].Date.After(all[1].Date) {
		t.Fatalf("expected newest first")
	}
}

func TestDeleteGuards(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if err := s.DeleteProduct(ctx, "p12"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected bundle component delete to conflict, got %v", err)
	}
	if err := s.DeleteLocation(ctx, "l2"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected location with users to conflict, got %v", err)
	}
	if err := s.DeleteProduct(ctx, "p27"); err != nil {
		t.Fatalf("delete bundle: %v", err)
	}
	if err := s.DeleteProduct(ctx, "p20"); err != nil {
		t.Fatalf("delete freed component: %v", err)
	}
}

func TestUserEmailIsUniqueAndCaseInsensitive(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	user, err := s.GetUserByEmail(ctx, "  Jane.Staff@Example.com ")
	if err != nil || user.ID != "u4" {
		t.Fatalf("expected u4, got %+v (%v)", user, err)
	}
	_, err = s.CreateUser(ctx, domain.User{Name: "Dup", Email: "JANE.staff@example.com", Password: "x", Role: domain.RoleStaff, LocationID: "l2"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}

	user.Name = "Jane D."
	user.Password = ""
	updated, err := s.UpdateUser(ctx, *user)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Password == "" {
		t.Fatalf("empty password on update must keep the stored hash")
	}
}
