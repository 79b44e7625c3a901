package pos

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

// DiscountPercentages are the Senior/PWD rates an operator may choose from.
var DiscountPercentages = []int{5, 10, 15, 20}

var (
	ErrDiscountDetailsRequired = fmt.Errorf("%w: customer name and ID photo are required for Senior/PWD discount", store.ErrInvalidTransaction)
	ErrDiscountPercent         = fmt.Errorf("%w: discount percentage must be one of 5, 10, 15, 20", store.ErrInvalidTransaction)
	ErrPaymentProofRequired    = fmt.Errorf("%w: reference number and payment proof are required for this payment method", store.ErrInvalidTransaction)
	ErrUnknownPaymentType      = fmt.Errorf("%w: unsupported payment type", store.ErrInvalidTransaction)
	ErrNegativeDeliveryFee     = fmt.Errorf("%w: delivery fee must not be negative", store.ErrInvalidTransaction)
	ErrEmptyCart               = fmt.Errorf("%w: cart is empty", store.ErrInvalidTransaction)
)

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal       decimal.Decimal
	DepositTotal   decimal.Decimal
	DiscountAmount decimal.Decimal
	DeliveryFee    decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Checkout is a cart ready to be finalized.
type Checkout struct {
	Items           []domain.SaleItem
	Discount        domain.DiscountInfo
	DeliveryFee     decimal.Decimal
	PaymentType     domain.PaymentType
	PaymentRefNo    string
	PaymentPhotoURL string
}

func UnitPrice(product domain.Product, tier domain.PriceType) decimal.Decimal {
	if tier == domain.PriceWholesale {
		return product.WholesalePrice
	}
	return product.Price
}

// NewLine builds the cart line for a product added at the given price tier.
// Products carrying a deposit start with the empty marked as returned.
func NewLine(product domain.Product, tier domain.PriceType, qty int) domain.SaleItem {
	return domain.SaleItem{
		ProductID:     product.ID,
		ProductName:   product.Name,
		Qty:           qty,
		UnitPrice:     UnitPrice(product, tier),
		ReturnedEmpty: product.DepositAmt.IsPositive(),
		Deposit:       product.DepositAmt,
	}
}

// ApplyPriceTier rewrites the unit price of every line to the tier's price.
// Lines whose product is unknown keep their captured price.
func ApplyPriceTier(items []domain.SaleItem, products map[string]domain.Product, tier domain.PriceType) []domain.SaleItem {
	out := make([]domain.SaleItem, len(items))
	for i, item := range items {
		out[i] = item
		if product, ok := products[item.ProductID]; ok {
			out[i].UnitPrice = UnitPrice(product, tier)
		}
	}
	return out
}

func Subtotal(items []domain.SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total.Round(2)
}

func DepositTotal(items []domain.SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.ReturnedEmpty {
			continue
		}
		total = total.Add(item.Deposit.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total.Round(2)
}

func DiscountAmount(subtotal decimal.Decimal, percentage int) decimal.Decimal {
	if percentage <= 0 {
		return decimal.Zero
	}
	return subtotal.Mul(decimal.NewFromInt(int64(percentage))).Div(hundred).Round(2)
}

func IsDiscountPercentage(percentage int) bool {
	for _, allowed := range DiscountPercentages {
		if allowed == percentage {
			return true
		}
	}
	return false
}

func (c Checkout) Totals() Totals {
	subtotal := Subtotal(c.Items)
	deposits := DepositTotal(c.Items)
	discount := decimal.Zero
	if c.Discount.Type == domain.DiscountSeniorPWD {
		discount = DiscountAmount(subtotal, c.Discount.Percentage)
	}
	total := subtotal.Add(deposits).Sub(discount).Add(c.DeliveryFee)

	return Totals{
		Subtotal:       subtotal,
		DepositTotal:   deposits,
		DiscountAmount: discount,
		DeliveryFee:    c.DeliveryFee,
		Tax:            decimal.Zero,
		Total:          total.Round(2),
	}
}

// Validate applies the finalization rules: discount paperwork and payment
// traceability. Stock availability is checked separately by the caller.
func (c Checkout) Validate() error {
	if len(c.Items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range c.Items {
		if item.Qty < 1 {
			return fmt.Errorf("%w: quantity for %s must be positive", store.ErrInvalidTransaction, item.ProductID)
		}
	}
	if c.DeliveryFee.IsNegative() {
		return ErrNegativeDeliveryFee
	}

	switch c.Discount.Type {
	case "", domain.DiscountNone:
	case domain.DiscountSeniorPWD:
		if !IsDiscountPercentage(c.Discount.Percentage) {
			return ErrDiscountPercent
		}
		if strings.TrimSpace(c.Discount.CustomerName) == "" || strings.TrimSpace(c.Discount.CustomerIDPhotoURL) == "" {
			return ErrDiscountDetailsRequired
		}
	default:
		return fmt.Errorf("%w: unsupported discount type %q", store.ErrInvalidTransaction, c.Discount.Type)
	}

	switch c.PaymentType {
	case domain.PaymentCash:
	case domain.PaymentEWallet, domain.PaymentBank:
		if strings.TrimSpace(c.PaymentRefNo) == "" || strings.TrimSpace(c.PaymentPhotoURL) == "" {
			return ErrPaymentProofRequired
		}
	default:
		return ErrUnknownPaymentType
	}
	return nil
}

// BundleAvailability is the number of whole bundles the component stock can
// fill. A bundle without components cannot be sold.
func BundleAvailability(bundle domain.Product, stock map[string]int) int {
	if len(bundle.BundleItems) == 0 {
		return 0
	}
	available := -1
	for _, component := range bundle.BundleItems {
		if component.Quantity < 1 {
			return 0
		}
		// floor division; negative balances yield zero bundles
		fill := stock[component.ProductID] / component.Quantity
		if stock[component.ProductID] < 0 {
			fill = 0
		}
		if available < 0 || fill < available {
			available = fill
		}
	}
	return available
}

func Availability(product domain.Product, stock map[string]int) int {
	if product.IsBundle {
		return BundleAvailability(product, stock)
	}
	return stock[product.ID]
}

// Decompose turns sale lines into per-product full-cylinder deductions.
// Bundles never deduct from their own id; their components do.
func Decompose(items []domain.SaleItem, products map[string]domain.Product) map[string]int {
	deductions := make(map[string]int, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if ok && product.IsBundle {
			for _, component := range product.BundleItems {
				deductions[component.ProductID] += component.Quantity * item.Qty
			}
			continue
		}
		deductions[item.ProductID] += item.Qty
	}
	return deductions
}

// BundleDeposit is the deposit a bundle carries: the sum of its components'
// deposits times their quantity.
func BundleDeposit(bundle domain.Product, products map[string]domain.Product) decimal.Decimal {
	total := decimal.Zero
	for _, component := range bundle.BundleItems {
		product, ok := products[component.ProductID]
		if !ok {
			continue
		}
		total = total.Add(product.DepositAmt.Mul(decimal.NewFromInt(int64(component.Quantity))))
	}
	return total
}

// ValidateBundle checks that every component exists, is not itself a bundle
// and is used at a positive quantity. Duplicate components are merged.
func ValidateBundle(bundle domain.Product, products map[string]domain.Product) ([]domain.BundleItem, error) {
	if len(bundle.BundleItems) == 0 {
		return nil, fmt.Errorf("%w: bundle needs at least one component", store.ErrInvalidTransaction)
	}
	merged := make(map[string]int, len(bundle.BundleItems))
	for _, component := range bundle.BundleItems {
		id := strings.TrimSpace(component.ProductID)
		if component.Quantity < 1 {
			return nil, fmt.Errorf("%w: component %s quantity must be positive", store.ErrInvalidTransaction, id)
		}
		if id == bundle.ID {
			return nil, fmt.Errorf("%w: bundle cannot contain itself", store.ErrInvalidTransaction)
		}
		product, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("%w: component %s does not exist", store.ErrInvalidTransaction, id)
		}
		if product.IsBundle {
			return nil, fmt.Errorf("%w: component %s is a bundle", store.ErrInvalidTransaction, id)
		}
		merged[id] += component.Quantity
	}

	items := make([]domain.BundleItem, 0, len(merged))
	for id, qty := range merged {
		items = append(items, domain.BundleItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}
