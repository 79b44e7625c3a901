// Package seed holds the starter catalog, branches, stock and accounts that a
// fresh store is loaded with.
package seed

import (
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"lpgpos/backend/internal/domain"
)

const defaultUserPassword = "password123"

type Data struct {
	Settings  domain.Settings
	Locations []domain.Location
	Products  []domain.Product
	Stock     []domain.StockBalance
	Users     []domain.User
}

// Load builds the seed set with bcrypt-hashed user passwords. The shared
// password comes from SEED_USER_PASSWORD; the dev default is used with a
// warning when it is unset.
func Load() (Data, error) {
	password := os.Getenv("SEED_USER_PASSWORD")
	if password == "" {
		log.Println("[seed] WARNING: using default dev credentials. Set SEED_USER_PASSWORD to override.")
		password = defaultUserPassword
	}
	users, err := Users(password)
	if err != nil {
		return Data{}, err
	}
	return Data{
		Settings:  Settings(),
		Locations: Locations(),
		Products:  Products(),
		Stock:     Stock(),
		Users:     users,
	}, nil
}

func Settings() domain.Settings {
	return domain.Settings{ShopName: "MSP Trading Center", TaxRate: decimal.Zero}
}

func Locations() []domain.Location {
	return []domain.Location{
		{ID: "l1", Name: "MSP Trading Center", Type: domain.LocationTypeMain, Address: "57 Zurbito St., Brgy. Bapor, Masbate City", ContactNumber: "0906 035 6116"},
		{ID: "l2", Name: "PINKY LINGAD STORE 1", Type: domain.LocationTypeReseller, Address: "Danao St. Brgy. Bapor, Masbate City"},
		{ID: "l3", Name: "PINKY LINGAD STORE 2", Type: domain.LocationTypeReseller, Address: "Cagba, Masbate City"},
	}
}

func Products() []domain.Product {
	acc := func(id, name, price, wholesale string, threshold int) domain.Product {
		return domain.Product{
			ID: id, Name: name, Type: domain.ProductTypeAccessory,
			Price: money(price), WholesalePrice: money(wholesale), DepositAmt: decimal.Zero,
			LowStockThreshold: threshold,
		}
	}
	lpg := func(id, name string, size float64, price, wholesale, deposit string, threshold int) domain.Product {
		return domain.Product{
			ID: id, Name: name, SizeKg: &size, Type: domain.ProductTypeLPG,
			Price: money(price), WholesalePrice: money(wholesale), DepositAmt: money(deposit),
			LowStockThreshold: threshold,
		}
	}
	bundle := func(id, name, price, wholesale, deposit string, items ...domain.BundleItem) domain.Product {
		p := acc(id, name, price, wholesale, 2)
		p.DepositAmt = money(deposit)
		p.IsBundle = true
		p.BundleItems = items
		return p
	}
	one := func(id string) domain.BundleItem { return domain.BundleItem{ProductID: id, Quantity: 1} }

	return []domain.Product{
		acc("p1", "Petron Gasullette GS-3 Burner", "448.4", "380", 10),
		acc("p2", "Replacement Burner Head - Large", "212.4", "180", 10),
		acc("p3", "Replacement Burner Head - Small", "141.6", "120", 10),
		acc("p4", "Fiesta Gas Butane Canister", "53.1", "45", 20),
		acc("p5", "Cast-Iron Turbo Burner - Large", "1062", "900", 5),
		acc("p6", "Cast-Iron Turbo Burner - Medium", "826", "700", 5),
		acc("p7", "Cast-Iron Turbo Burner - Small", "649", "550", 5),
		acc("p8", "LPG Rubber Hose (per meter)", "100.3", "85", 50),
		acc("p9", "Hose Clamp - Large", "29.5", "25", 50),
		acc("p10", "Hose Clamp - Medium", "23.6", "20", 50),
		acc("p11", "Hose Clamp - Small", "17.7", "15", 50),
		lpg("p12", "Fiesta Gas 11 kg Cylinder", 11, "980", "830.51", "1200", 10),
		lpg("p13", "Fiesta Gas 2.7 kg Cylinder", 2.7, "240.55", "203.85", "500", 10),
		lpg("p14", "Gasulito Cylinder", 2.7, "267.55", "226.73", "500", 10),
		lpg("p15", "Petron Gasul 11 kg Cylinder", 11, "1090", "923.73", "1200", 10),
		lpg("p16", "Petron Gasul 22 kg Cylinder", 22, "2180", "1847.46", "2500", 5),
		lpg("p17", "Petron Gasul 50 kg Cylinder", 50, "4905", "4156.78", "4000", 3),
		lpg("p18", "Petron Gasul 7 kg Cylinder", 7, "693.64", "587.83", "1000", 10),
		lpg("p19", "Petron Gasul Elite 11 kg Cylinder", 11, "1100", "932.2", "1200", 10),
		acc("p20", "Reyna Portable Butane Stove", "1003", "850", 5),
		acc("p21", "High-Pressure Regulator with Gauge", "1121", "950", 10),
		acc("p22", "Reyna Automatic Low-Pressure Regulator", "495.6", "420", 10),
		acc("p23", "Reyna Low-Pressure Regulator (Boxed)", "424.8", "360", 10),
		acc("p24", "Reyna Double-Burner Gas Stove", "1298", "1100", 5),
		acc("p25", "Reyna Single-Burner Gas Stove", "826", "700", 5),
		acc("p26", "Wok/Pot Support Ring", "188.8", "160", 10),
		bundle("p27", "Fiesta Gas Stove Set Promo", "599", "599", "0",
			one("p20"), domain.BundleItem{ProductID: "p4", Quantity: 2}),
		bundle("p28", "Fiesta Gas Double Burner Set", "2750", "2350", "1200",
			one("p12"), one("p24"), one("p8"), one("p22")),
		bundle("p29", "Fiesta Gas Single Burner Set", "2300", "1950", "1200",
			one("p12"), one("p25"), one("p8"), one("p22")),
	}
}

func Stock() []domain.StockBalance {
	row := func(id, product, location string, full, empty int) domain.StockBalance {
		return domain.StockBalance{ID: id, ProductID: product, LocationID: location, FullQty: full, EmptyQty: empty}
	}
	return []domain.StockBalance{
		row("s1", "p15", "l1", 45, 12),
		row("s2", "p16", "l1", 20, 5),
		row("s3", "p17", "l1", 8, 2),
		row("s4", "p22", "l1", 100, 0),
		row("s5", "p8", "l1", 250, 0),
		row("s6", "p15", "l2", 250, 30),
		row("s7", "p16", "l2", 100, 10),
		row("s8", "p15", "l3", 15, 3),
		row("s9", "p12", "l1", 30, 5),
		row("s10", "p13", "l1", 50, 15),
		row("s11", "p4", "l1", 100, 0),
		row("s12", "p20", "l1", 10, 0),
		row("s13", "p24", "l1", 10, 0),
		row("s14", "p25", "l1", 10, 0),
	}
}

// Users returns the starter accounts, all sharing password.
func Users(password string) ([]domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	users := []domain.User{
		{ID: "u1", Name: "Malvin", Email: "malvin.super@example.com", Role: domain.RoleSuperadmin},
		{ID: "u2", Name: "Samira", Email: "samira.admin@example.com", Role: domain.RoleAdmin, LocationID: "l2"},
		{ID: "u3", Name: "Pinky", Email: "pinky.admin@example.com", Role: domain.RoleAdmin, LocationID: "l3"},
		{ID: "u4", Name: "Jane", Email: "jane.staff@example.com", Role: domain.RoleStaff, LocationID: "l2"},
		{ID: "u5", Name: "Bart", Email: "bart.staff@example.com", Role: domain.RoleStaff, LocationID: "l3"},
		{ID: "u6", Name: "Clarence", Email: "clarence.staff@example.com", Role: domain.RoleStaff, LocationID: "l1"},
	}
	for i := range users {
		users[i].Password = string(hash)
	}
	return users, nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
