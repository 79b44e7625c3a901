package store

import (
	"context"
	"errors"
	"time"

	"lpgpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrConflict           = errors.New("conflict")
)

// Filter narrows list queries. An empty LocationID or domain.AllLocations
// matches every location; zero times leave that bound open.
type Filter struct {
	LocationID string
	From       time.Time
	To         time.Time
	Limit      int
}

func (f Filter) AllLocations() bool {
	return f.LocationID == "" || f.LocationID == domain.AllLocations
}

// Match reports whether a record at locationID created at at passes the filter.
func (f Filter) Match(locationID string, at time.Time) bool {
	if !f.AllLocations() && locationID != f.LocationID {
		return false
	}
	if !f.From.IsZero() && at.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !at.Before(f.To) {
		return false
	}
	return true
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListLocations(ctx context.Context) ([]domain.Location, error)
	GetLocation(ctx context.Context, id string) (*domain.Location, error)
	CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error)
	UpdateLocation(ctx context.Context, location domain.Location) (*domain.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, id string, password string) error
	DeleteUser(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)

	ListStock(ctx context.Context, locationID string) ([]domain.StockBalance, error)
	ReceiveStock(ctx context.Context, receive domain.StockReceive) (*domain.StockReceive, error)
	TransferStock(ctx context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error)
	AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.StockAdjustment, error)
	ListMovements(ctx context.Context, filter Filter) (domain.StockMovements, error)

	// CreateSale stores the sale and deducts the decomposed quantities from
	// full stock at the sale location in one step.
	CreateSale(ctx context.Context, sale domain.Sale, deductions map[string]int) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter Filter) ([]domain.Sale, error)

	ListExpenses(ctx context.Context, filter Filter) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter Filter) ([]domain.AuditLog, error)
}
