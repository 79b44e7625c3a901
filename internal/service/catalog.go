package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/pos"
	"lpgpos/backend/internal/store"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return domain.Product{}, err
	}

	product, err := s.productFromRequest(ctx, "", req)
	if err != nil {
		return domain.Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, "", "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%s,bundle=%t", created.Name, created.Price, created.IsBundle))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	if req.IsBundle && !existing.IsBundle {
		inBundle, err := s.usedInBundle(ctx, existing.ID)
		if err != nil {
			return domain.Product{}, err
		}
		if inBundle {
			return domain.Product{}, fmt.Errorf("%w: product is a component of a bundle", store.ErrConflict)
		}
	}

	product, err := s.productFromRequest(ctx, existing.ID, req)
	if err != nil {
		return domain.Product{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, "", "product_update", "product", saved.ID, fmt.Sprintf("price=%s,wholesale=%s,threshold=%d", saved.Price, saved.WholesalePrice, saved.LowStockThreshold))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, "", "product_delete", "product", id, "")
	return nil
}

// productFromRequest validates a catalog entry. Bundles get their components
// checked and merged, and carry the sum of their components' deposits.
func (s *Service) productFromRequest(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	product := domain.Product{
		ID:                id,
		Name:              strings.TrimSpace(req.Name),
		SizeKg:            req.SizeKg,
		Type:              req.Type,
		Price:             req.Price.Round(2),
		WholesalePrice:    req.WholesalePrice.Round(2),
		DepositAmt:        req.DepositAmt.Round(2),
		LowStockThreshold: req.LowStockThreshold,
		IsBundle:          req.IsBundle,
	}

	if product.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrInvalidTransaction)
	}
	switch product.Type {
	case domain.ProductTypeLPG, domain.ProductTypeAccessory:
	case "":
		product.Type = domain.ProductTypeAccessory
	default:
		return domain.Product{}, fmt.Errorf("%w: unknown product type %q", store.ErrInvalidTransaction, product.Type)
	}
	if product.Price.IsNegative() || product.WholesalePrice.IsNegative() || product.DepositAmt.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: prices and deposit must not be negative", store.ErrInvalidTransaction)
	}
	if product.LowStockThreshold < 0 {
		return domain.Product{}, fmt.Errorf("%w: low stock threshold must not be negative", store.ErrInvalidTransaction)
	}
	if product.SizeKg != nil && *product.SizeKg <= 0 {
		return domain.Product{}, fmt.Errorf("%w: size must be positive", store.ErrInvalidTransaction)
	}

	if !product.IsBundle {
		return product, nil
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	product.BundleItems = req.BundleItems
	items, err := pos.ValidateBundle(product, catalog)
	if err != nil {
		return domain.Product{}, err
	}
	product.BundleItems = items
	product.DepositAmt = pos.BundleDeposit(product, catalog).Round(2)
	return product, nil
}

func (s *Service) catalog(ctx context.Context) (map[string]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(products))
	for _, product := range products {
		out[product.ID] = product
	}
	return out, nil
}

func (s *Service) usedInBundle(ctx context.Context, id string) (bool, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return false, err
	}
	for _, product := range products {
		for _, item := range product.BundleItems {
			if item.ProductID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Service) ListLocations(ctx context.Context) ([]domain.Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateLocation(ctx context.Context, req domain.LocationRequest) (domain.Location, error) {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return domain.Location{}, err
	}
	location, err := s.locationFromRequest(ctx, "", req)
	if err != nil {
		return domain.Location{}, err
	}
	created, err := s.repo.CreateLocation(ctx, location)
	if err != nil {
		return domain.Location{}, err
	}

	s.logAudit(ctx, created.ID, "location_create", "location", created.ID, fmt.Sprintf("name=%s,type=%s", created.Name, created.Type))
	return *created, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id string, req domain.LocationRequest) (domain.Location, error) {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return domain.Location{}, err
	}
	existing, err := s.repo.GetLocation(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Location{}, err
	}
	if existing.Type == domain.LocationTypeMain && req.Type != "" && req.Type != domain.LocationTypeMain {
		return domain.Location{}, fmt.Errorf("%w: the main location cannot be demoted", store.ErrConflict)
	}
	location, err := s.locationFromRequest(ctx, existing.ID, req)
	if err != nil {
		return domain.Location{}, err
	}
	saved, err := s.repo.UpdateLocation(ctx, location)
	if err != nil {
		return domain.Location{}, err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, saved.ID, "location_update", "location", saved.ID, fmt.Sprintf("name=%s,type=%s", saved.Name, saved.Type))
	return *saved, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, access.CatalogManage); err != nil {
		return err
	}
	existing, err := s.repo.GetLocation(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if existing.Type == domain.LocationTypeMain {
		return fmt.Errorf("%w: the main location cannot be deleted", store.ErrConflict)
	}
	if err := s.repo.DeleteLocation(ctx, existing.ID); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, existing.ID, "location_delete", "location", existing.ID, existing.Name)
	return nil
}

// locationFromRequest validates a location. There is exactly one Main
// location; sales by unrestricted users default to it.
func (s *Service) locationFromRequest(ctx context.Context, id string, req domain.LocationRequest) (domain.Location, error) {
	location := domain.Location{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		Type:          req.Type,
		Address:       strings.TrimSpace(req.Address),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
	}
	if location.Name == "" {
		return domain.Location{}, fmt.Errorf("%w: location name is required", store.ErrInvalidTransaction)
	}
	switch location.Type {
	case "":
		location.Type = domain.LocationTypeReseller
	case domain.LocationTypeMain, domain.LocationTypeReseller:
	default:
		return domain.Location{}, fmt.Errorf("%w: unknown location type %q", store.ErrInvalidTransaction, location.Type)
	}

	if location.Type == domain.LocationTypeMain {
		mainID, err := s.mainLocationID(ctx)
		if err == nil && mainID != id {
			return domain.Location{}, fmt.Errorf("%w: a main location already exists", store.ErrConflict)
		}
	}
	return location, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := s.authorize(ctx, access.UserManage); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, access.UserManage); err != nil {
		return domain.User{}, err
	}
	if len(req.Password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidTransaction, minPasswordLength)
	}
	user, err := s.userFromRequest(ctx, "", req)
	if err != nil {
		return domain.User{}, err
	}
	if user.Password, err = s.hash(req.Password); err != nil {
		return domain.User{}, err
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	created.Password = ""

	s.logAudit(ctx, created.LocationID, "user_create", "user", created.ID, fmt.Sprintf("email=%s,role=%s", created.Email, created.Role))
	return *created, nil
}

// UpdateUser changes a user's profile. An empty password keeps the current one.
func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, access.UserManage); err != nil {
		return domain.User{}, err
	}
	existing, err := s.repo.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.userFromRequest(ctx, existing.ID, req)
	if err != nil {
		return domain.User{}, err
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidTransaction, minPasswordLength)
		}
		if user.Password, err = s.hash(req.Password); err != nil {
			return domain.User{}, err
		}
	}

	saved, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	saved.Password = ""

	s.logAudit(ctx, saved.LocationID, "user_update", "user", saved.ID, fmt.Sprintf("email=%s,role=%s,password_changed=%t", saved.Email, saved.Role, req.Password != ""))
	return *saved, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.authorize(ctx, access.UserManage)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == actor.UserID {
		return fmt.Errorf("%w: you cannot delete your own account", store.ErrInvalidTransaction)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "", "user_delete", "user", id, "")
	return nil
}

// userFromRequest validates a user. Admins and Staff must be assigned an
// existing location; Superadmins never carry one.
func (s *Service) userFromRequest(ctx context.Context, id string, req domain.UserRequest) (domain.User, error) {
	user := domain.User{
		ID:         id,
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Role:       req.Role,
		LocationID: strings.TrimSpace(req.LocationID),
	}
	if user.Name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", store.ErrInvalidTransaction)
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return domain.User{}, fmt.Errorf("%w: a valid email is required", store.ErrInvalidTransaction)
	}

	switch user.Role {
	case domain.RoleSuperadmin:
		user.LocationID = ""
	case domain.RoleAdmin, domain.RoleStaff:
		if user.LocationID == "" {
			return domain.User{}, fmt.Errorf("%w: %s users need a location", store.ErrInvalidTransaction, user.Role)
		}
		if _, err := s.repo.GetLocation(ctx, user.LocationID); err != nil {
			return domain.User{}, err
		}
	default:
		return domain.User{}, fmt.Errorf("%w: unknown role %q", store.ErrInvalidTransaction, user.Role)
	}
	return user, nil
}

func (s *Service) hash(password string) (string, error) {
	if s.passwords == nil {
		return "", fmt.Errorf("password hashing is not configured")
	}
	return s.passwords.HashPassword(password)
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings stores the shop name and tax rate. The rate is kept for
// display only; sales never apply tax.
func (s *Service) UpdateSettings(ctx context.Context, req domain.Settings) (domain.Settings, error) {
	if _, err := s.authorize(ctx, access.SettingsManage); err != nil {
		return domain.Settings{}, err
	}
	req.ShopName = strings.TrimSpace(req.ShopName)
	if req.ShopName == "" {
		return domain.Settings{}, fmt.Errorf("%w: shop name is required", store.ErrInvalidTransaction)
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Settings{}, fmt.Errorf("%w: tax rate must be between 0 and 100", store.ErrInvalidTransaction)
	}

	saved, err := s.repo.UpdateSettings(ctx, req)
	if err != nil {
		return domain.Settings{}, err
	}

	s.invalidate(ctx)
	s.logAudit(ctx, "", "settings_update", "settings", "shop", fmt.Sprintf("shop_name=%s,tax_rate=%s", saved.ShopName, saved.TaxRate))
	return saved, nil
}
