package memory

import (
	"context"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/inventory"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/store/seed"
	"lpgpos/backend/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	settings    domain.Settings
	products    map[string]domain.Product
	locations   map[string]domain.Location
	usersByID   map[string]domain.User
	balances    inventory.Balances
	sales       map[string]domain.Sale
	receives    []domain.StockReceive
	transfers   []domain.StockTransfer
	adjustments []domain.StockAdjustment
	expenses    map[string]domain.Expense
	auditLogs   []domain.AuditLog
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		locations: make(map[string]domain.Location),
		usersByID: make(map[string]domain.User),
		balances:  make(inventory.Balances),
		sales:     make(map[string]domain.Sale),
		expenses:  make(map[string]domain.Expense),
		auditLogs: make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store loaded with the starter data set. It is used for
// dev/demo mode and as the test fixture; the server switches to a SQL store
// when DATABASE_URL is set.
func NewSeeded() *Store {
	data, err := seed.Load()
	if err != nil {
		log.Fatalf("[memory-store] failed to load seed data: %v", err)
	}
	return FromSeed(data)
}

func FromSeed(data seed.Data) *Store {
	s := New()
	s.settings = data.Settings
	for _, l := range data.Locations {
		s.locations[l.ID] = l
	}
	for _, p := range data.Products {
		s.products[p.ID] = cloneProduct(p)
	}
	for _, u := range data.Users {
		s.usersByID[u.ID] = u
	}
	s.balances = inventory.FromRows(data.Stock)
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		for _, item := range p.BundleItems {
			if item.ProductID == id {
				return store.ErrConflict
			}
		}
	}
	delete(s.products, id)
	for k := range s.balances {
		if k.ProductID == id {
			delete(s.balances, k)
		}
	}
	return nil
}

func (s *Store) ListLocations(_ context.Context) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]domain.Location, 0, len(s.locations))
	for _, l := range s.locations {
		locations = append(locations, l)
	}
	slices.SortFunc(locations, func(a, b domain.Location) int {
		return cmpString(a.ID, b.ID)
	})
	return locations, nil
}

func (s *Store) GetLocation(_ context.Context, id string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	location, exists := s.locations[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &location, nil
}

func (s *Store) CreateLocation(_ context.Context, location domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	if _, exists := s.locations[location.ID]; exists {
		return nil, store.ErrConflict
	}
	s.locations[location.ID] = location
	return &location, nil
}

func (s *Store) UpdateLocation(_ context.Context, location domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locations[location.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.locations[location.ID] = location
	return &location, nil
}

func (s *Store) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locations[id]; !exists {
		return store.ErrNotFound
	}
	for _, u := range s.usersByID {
		if u.LocationID == id {
			return store.ErrConflict
		}
	}
	delete(s.locations, id)
	for k := range s.balances {
		if k.LocationID == id {
			delete(s.balances, k)
		}
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return cmpString(a.Email, b.Email)
	})
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.usersByID {
		if strings.ToLower(user.Email) == email {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if _, exists := s.usersByID[user.ID]; exists || s.emailTakenLocked(user.Email, "") {
		return nil, store.ErrConflict
	}
	s.usersByID[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.usersByID[user.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return nil, store.ErrConflict
	}
	if user.Password == "" {
		user.Password = existing.Password
	}
	s.usersByID[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, id string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	user, exists := s.usersByID[id]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByID[id] = user
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.usersByID, id)
	return nil
}

func (s *Store) emailTakenLocked(email string, exceptID string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for id, u := range s.usersByID {
		if id != exceptID && strings.ToLower(u.Email) == email {
			return true
		}
	}
	return false
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return settings, nil
}

func (s *Store) ListStock(_ context.Context, locationID string) ([]domain.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := locationID == "" || locationID == domain.AllLocations
	rows := make([]domain.StockBalance, 0, len(s.balances))
	for _, row := range s.balances.Rows() {
		if all || row.LocationID == locationID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *Store) ReceiveStock(_ context.Context, receive domain.StockReceive) (*domain.StockReceive, error) {
	if err := inventory.CheckReceive(receive); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(receive.ProductID, receive.LocationID); err != nil {
		return nil, err
	}
	if receive.ID == "" {
		receive.ID = xid.New("rcv")
	}
	if receive.Date.IsZero() {
		receive.Date = time.Now().UTC()
	}
	s.balances = inventory.Receive(s.balances, receive)
	s.receives = append(s.receives, receive)
	return &receive, nil
}

func (s *Store) TransferStock(_ context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(transfer.ProductID, transfer.FromLocationID, transfer.ToLocationID); err != nil {
		return nil, err
	}
	if err := inventory.CheckTransfer(s.balances, transfer); err != nil {
		return nil, err
	}
	if transfer.ID == "" {
		transfer.ID = xid.New("trf")
	}
	if transfer.Date.IsZero() {
		transfer.Date = time.Now().UTC()
	}
	s.balances = inventory.Transfer(s.balances, transfer)
	s.transfers = append(s.transfers, transfer)
	return &transfer, nil
}

func (s *Store) AdjustStock(_ context.Context, adjustment domain.StockAdjustment) (*domain.StockAdjustment, error) {
	if err := inventory.CheckAdjust(adjustment); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, record := inventory.Adjust(s.balances, adjustment)
	if record == nil {
		return nil, store.ErrNotFound
	}
	if record.ID == "" {
		record.ID = xid.New("adj")
	}
	if record.Date.IsZero() {
		record.Date = time.Now().UTC()
	}
	s.balances = next
	s.adjustments = append(s.adjustments, *record)
	return record, nil
}

func (s *Store) ListMovements(_ context.Context, filter store.Filter) (domain.StockMovements, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := domain.StockMovements{
		Receives:    []domain.StockReceive{},
		Transfers:   []domain.StockTransfer{},
		Adjustments: []domain.StockAdjustment{},
	}
	for _, r := range s.receives {
		if filter.Match(r.LocationID, r.Date) {
			out.Receives = append(out.Receives, r)
		}
	}
	for _, t := range s.transfers {
		if filter.Match(t.FromLocationID, t.Date) || filter.Match(t.ToLocationID, t.Date) {
			out.Transfers = append(out.Transfers, t)
		}
	}
	for _, a := range s.adjustments {
		if filter.Match(a.LocationID, a.Date) {
			out.Adjustments = append(out.Adjustments, a)
		}
	}
	slices.SortFunc(out.Receives, func(a, b domain.StockReceive) int { return newestFirst(a.Date, b.Date, a.ID, b.ID) })
	slices.SortFunc(out.Transfers, func(a, b domain.StockTransfer) int { return newestFirst(a.Date, b.Date, a.ID, b.ID) })
	slices.SortFunc(out.Adjustments, func(a, b domain.StockAdjustment) int { return newestFirst(a.Date, b.Date, a.ID, b.ID) })
	out.Receives = limit(out.Receives, filter.Limit)
	out.Transfers = limit(out.Transfers, filter.Limit)
	out.Adjustments = limit(out.Adjustments, filter.Limit)
	return out, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, deductions map[string]int) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[sale.LocationID]; !ok {
		return nil, store.ErrNotFound
	}
	if err := inventory.CheckSale(s.balances, sale.LocationID, deductions); err != nil {
		return nil, err
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	s.balances = inventory.DeductSale(s.balances, sale.LocationID, deductions)
	s.sales[sale.ID] = cloneSale(sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneSale(sale)
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, filter store.Filter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.sales {
		if filter.Match(sale.LocationID, sale.Date) {
			result = append(result, cloneSale(sale))
		}
	}
	slices.SortFunc(result, func(a, b domain.Sale) int { return newestFirst(a.Date, b.Date, a.ID, b.ID) })
	return limit(result, filter.Limit), nil
}

func (s *Store) ListExpenses(_ context.Context, filter store.Filter) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 32)
	for _, e := range s.expenses {
		if filter.Match(e.LocationID, e.Date) {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b domain.Expense) int { return newestFirst(a.Date, b.Date, a.ID, b.ID) })
	return limit(result, filter.Limit), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, ok := s.expenses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &expense, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[expense.LocationID]; !ok {
		return nil, store.ErrNotFound
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	s.expenses[expense.ID] = expense
	return &expense, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.expenses[expense.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if expense.Date.IsZero() {
		expense.Date = existing.Date
	}
	s.expenses[expense.ID] = expense
	return &expense, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter store.Filter) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if filter.Match(entry.LocationID, entry.CreatedAt) {
			result = append(result, entry)
		}
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return limit(result, filter.Limit), nil
}

// requireLocked checks the product and every location exist.
func (s *Store) requireLocked(productID string, locationIDs ...string) error {
	if _, ok := s.products[productID]; !ok {
		return store.ErrNotFound
	}
	for _, id := range locationIDs {
		if _, ok := s.locations[id]; !ok {
			return store.ErrNotFound
		}
	}
	return nil
}

func newestFirst(a, b time.Time, aID, bID string) int {
	if a.Equal(b) {
		return cmpString(bID, aID)
	}
	if a.After(b) {
		return -1
	}
	return 1
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func cmpString(a string, b string) int {
	return strings.Compare(a, b)
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	if src.SizeKg != nil {
		size := *src.SizeKg
		dup.SizeKg = &size
	}
	if src.BundleItems != nil {
		dup.BundleItems = slices.Clone(src.BundleItems)
	}
	return dup
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = slices.Clone(src.Items)
	if src.DiscountInfo != nil {
		info := *src.DiscountInfo
		dup.DiscountInfo = &info
	}
	return dup
}
