package service

import (
	"context"
	"fmt"
	"strings"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/inventory"
	"lpgpos/backend/internal/pos"
	"lpgpos/backend/internal/store"
)

// cart is a priced request: the checkout to validate and the catalog it was
// priced against.
type cart struct {
	locationID string
	checkout   pos.Checkout
	catalog    map[string]domain.Product
}

func (s *Service) buildCart(ctx context.Context, locationID string, req domain.SaleRequest) (cart, error) {
	tier := req.PriceType
	switch tier {
	case "":
		tier = domain.PriceRetail
	case domain.PriceRetail, domain.PriceWholesale:
	default:
		return cart{}, fmt.Errorf("%w: unknown price type %q", store.ErrInvalidTransaction, tier)
	}
	if len(req.Items) == 0 {
		return cart{}, pos.ErrEmptyCart
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return cart{}, err
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, ok := catalog[strings.TrimSpace(line.ProductID)]
		if !ok {
			return cart{}, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
		}
		item := pos.NewLine(product, tier, line.Qty)
		if line.ReturnedEmpty != nil && item.Deposit.IsPositive() {
			item.ReturnedEmpty = *line.ReturnedEmpty
		}
		items = append(items, item)
	}

	discount := domain.DiscountInfo{Type: domain.DiscountNone}
	if req.DiscountType == domain.DiscountSeniorPWD {
		discount = domain.DiscountInfo{
			Type:               domain.DiscountSeniorPWD,
			Percentage:         req.DiscountPercent,
			CustomerName:       strings.TrimSpace(req.CustomerName),
			CustomerIDPhotoURL: strings.TrimSpace(req.CustomerIDPhoto),
		}
	} else if req.DiscountType != "" && req.DiscountType != domain.DiscountNone {
		discount.Type = req.DiscountType
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = domain.PaymentCash
	}

	return cart{
		locationID: locationID,
		catalog:    catalog,
		checkout: pos.Checkout{
			Items:           items,
			Discount:        discount,
			DeliveryFee:     req.DeliveryFee.Round(2),
			PaymentType:     paymentType,
			PaymentRefNo:    strings.TrimSpace(req.PaymentRefNo),
			PaymentPhotoURL: strings.TrimSpace(req.PaymentPhoto),
		},
	}, nil
}

// QuoteSale prices a cart without committing it. Discount and payment
// paperwork are not required for a quote.
func (s *Service) QuoteSale(ctx context.Context, req domain.SaleRequest) (domain.SaleQuote, error) {
	_, locationID, err := s.scope(ctx, access.SaleCreate, req.LocationID, false)
	if err != nil {
		return domain.SaleQuote{}, err
	}
	c, err := s.buildCart(ctx, locationID, req)
	if err != nil {
		return domain.SaleQuote{}, err
	}
	if c.checkout.Discount.Type == domain.DiscountSeniorPWD && !pos.IsDiscountPercentage(c.checkout.Discount.Percentage) {
		return domain.SaleQuote{}, pos.ErrDiscountPercent
	}
	if c.checkout.DeliveryFee.IsNegative() {
		return domain.SaleQuote{}, pos.ErrNegativeDeliveryFee
	}

	totals := c.checkout.Totals()
	return domain.SaleQuote{
		LocationID:     locationID,
		PriceType:      defaultPriceType(req.PriceType),
		Items:          c.checkout.Items,
		Subtotal:       totals.Subtotal,
		DepositTotal:   totals.DepositTotal,
		DiscountAmount: totals.DiscountAmount,
		DeliveryFee:    totals.DeliveryFee,
		Tax:            totals.Tax,
		Total:          totals.Total,
	}, nil
}

// CreateSale finalizes a cart: it validates the checkout rules, decomposes
// bundles into component deductions and commits the sale and the stock
// change together.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	actor, locationID, err := s.scope(ctx, access.SaleCreate, req.LocationID, false)
	if err != nil {
		return domain.Sale{}, err
	}
	c, err := s.buildCart(ctx, locationID, req)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := c.checkout.Validate(); err != nil {
		return domain.Sale{}, err
	}

	totals := c.checkout.Totals()
	sale := domain.Sale{
		Date:            s.now(),
		LocationID:      locationID,
		UserID:          actor.UserID,
		Items:           c.checkout.Items,
		Subtotal:        totals.Subtotal,
		DepositTotal:    totals.DepositTotal,
		DiscountAmount:  totals.DiscountAmount,
		DeliveryFee:     totals.DeliveryFee,
		PriceType:       defaultPriceType(req.PriceType),
		Tax:             totals.Tax,
		Total:           totals.Total,
		PaymentType:     c.checkout.PaymentType,
		PaymentRefNo:    c.checkout.PaymentRefNo,
		PaymentPhotoURL: c.checkout.PaymentPhotoURL,
	}
	if c.checkout.Discount.Type == domain.DiscountSeniorPWD {
		info := c.checkout.Discount
		sale.DiscountInfo = &info
	}

	created, err := s.repo.CreateSale(ctx, sale, pos.Decompose(c.checkout.Items, c.catalog))
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidate(ctx, locationID)
	s.logAudit(ctx, locationID, "sale_create", "sale", created.ID, fmt.Sprintf("total=%s,payment=%s,items=%d", created.Total, created.PaymentType, len(created.Items)))
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	actor, err := s.authorize(ctx, access.SaleView)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	if err := checkOwned(actor, access.SaleView, sale.LocationID); err != nil {
		// hide other locations' sales
		return domain.Sale{}, store.ErrNotFound
	}
	return *sale, nil
}

// ListSales lists sales newest first for a location or, for unrestricted
// actors, every location. An empty range lists all time.
func (s *Service) ListSales(ctx context.Context, locationID string, rng domain.ReportRange, limit int) ([]domain.Sale, error) {
	_, locationID, err := s.scope(ctx, access.SaleView, locationID, true)
	if err != nil {
		return nil, err
	}
	filter, err := s.window(locationID, rng, defaultLimit(limit, 200, 1000))
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, filter)
}

// ProductAvailability reports how many units of each product can be sold at
// a location. Bundles are limited by their scarcest component.
func (s *Service) ProductAvailability(ctx context.Context, locationID string) ([]domain.ProductAvailability, error) {
	_, locationID, err := s.scope(ctx, access.SaleView, locationID, false)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListStock(ctx, locationID)
	if err != nil {
		return nil, err
	}
	stock := inventory.FromRows(rows).FullAt(locationID)

	out := make([]domain.ProductAvailability, 0, len(products))
	for _, product := range products {
		available := pos.Availability(product, stock)
		out = append(out, domain.ProductAvailability{
			ProductID: product.ID,
			Name:      product.Name,
			IsBundle:  product.IsBundle,
			Available: available,
			LowStock:  available <= product.LowStockThreshold,
		})
	}
	return out, nil
}

func defaultPriceType(tier domain.PriceType) domain.PriceType {
	if tier == "" {
		return domain.PriceRetail
	}
	return tier
}
