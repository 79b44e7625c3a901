package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

type LocationType string

type Role string

type PaymentType string

type PriceType string

type DiscountType string

const (
	ProductTypeLPG       ProductType = "LPG"
	ProductTypeAccessory ProductType = "Accessory"

	LocationTypeMain     LocationType = "Main"
	LocationTypeReseller LocationType = "Reseller"

	RoleSuperadmin Role = "Superadmin"
	RoleAdmin      Role = "Admin"
	RoleStaff      Role = "Staff"

	PaymentCash    PaymentType = "Cash"
	PaymentEWallet PaymentType = "E-Wallet"
	PaymentBank    PaymentType = "Bank Transfer"

	PriceRetail    PriceType = "Retail"
	PriceWholesale PriceType = "Wholesale"

	DiscountNone      DiscountType = "None"
	DiscountSeniorPWD DiscountType = "Senior/PWD"
)

// AllLocations is the read scope a Superadmin uses to see every location at once.
const AllLocations = "all"

var ExpenseCategories = []string{"Fuel", "Freight", "Refilling", "Rent", "Utilities", "Salaries", "Other"}

type BundleItem struct {
	ProductID string `json:"product_id" db:"component_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
}

type Product struct {
	ID                string          `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	SizeKg            *float64        `json:"size_kg" db:"size_kg"`
	Type              ProductType     `json:"type" db:"type"`
	Price             decimal.Decimal `json:"price" db:"price"`
	WholesalePrice    decimal.Decimal `json:"wholesale_price" db:"wholesale_price"`
	DepositAmt        decimal.Decimal `json:"deposit_amt" db:"deposit_amt"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	IsBundle          bool            `json:"is_bundle" db:"is_bundle"`
	BundleItems       []BundleItem    `json:"bundle_items,omitempty" db:"-"`
}

type ProductRequest struct {
	Name              string          `json:"name"`
	SizeKg            *float64        `json:"size_kg,omitempty"`
	Type              ProductType     `json:"type"`
	Price             decimal.Decimal `json:"price"`
	WholesalePrice    decimal.Decimal `json:"wholesale_price"`
	DepositAmt        decimal.Decimal `json:"deposit_amt"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsBundle          bool            `json:"is_bundle"`
	BundleItems       []BundleItem    `json:"bundle_items,omitempty"`
}

type ProductAvailability struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	IsBundle  bool   `json:"is_bundle"`
	Available int    `json:"available"`
	LowStock  bool   `json:"low_stock"`
}

type Location struct {
	ID            string       `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Type          LocationType `json:"type" db:"type"`
	Address       string       `json:"address" db:"address"`
	ContactNumber string       `json:"contact_number,omitempty" db:"contact_number"`
}

type LocationRequest struct {
	Name          string       `json:"name"`
	Type          LocationType `json:"type"`
	Address       string       `json:"address"`
	ContactNumber string       `json:"contact_number,omitempty"`
}

type StockBalance struct {
	ID         string `json:"id" db:"id"`
	ProductID  string `json:"product_id" db:"product_id"`
	LocationID string `json:"location_id" db:"location_id"`
	FullQty    int    `json:"full_qty" db:"full_qty"`
	EmptyQty   int    `json:"empty_qty" db:"empty_qty"`
}

type SaleItem struct {
	ProductID     string          `json:"product_id" db:"product_id"`
	ProductName   string          `json:"product_name" db:"product_name"`
	Qty           int             `json:"qty" db:"qty"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	ReturnedEmpty bool            `json:"returned_empty" db:"returned_empty"`
	Deposit       decimal.Decimal `json:"deposit" db:"deposit"`
}

type DiscountInfo struct {
	Type               DiscountType `json:"type"`
	Percentage         int          `json:"percentage"`
	CustomerName       string       `json:"customer_name"`
	CustomerIDPhotoURL string       `json:"customer_id_photo_url"`
}

type Sale struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	LocationID      string          `json:"location_id"`
	UserID          string          `json:"user_id"`
	Items           []SaleItem      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DepositTotal    decimal.Decimal `json:"deposit_total"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountInfo    *DiscountInfo   `json:"discount_info,omitempty"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	PriceType       PriceType       `json:"price_type"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	PaymentType     PaymentType     `json:"payment_type"`
	PaymentRefNo    string          `json:"payment_ref_no,omitempty"`
	PaymentPhotoURL string          `json:"payment_photo_url,omitempty"`
}

type SaleLineRequest struct {
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	ReturnedEmpty *bool  `json:"returned_empty,omitempty"`
}

type SaleRequest struct {
	LocationID      string            `json:"location_id,omitempty"`
	PriceType       PriceType         `json:"price_type"`
	Items           []SaleLineRequest `json:"items"`
	DiscountType    DiscountType      `json:"discount_type,omitempty"`
	DiscountPercent int               `json:"discount_percent,omitempty"`
	CustomerName    string            `json:"customer_name,omitempty"`
	CustomerIDPhoto string            `json:"customer_id_photo,omitempty"`
	DeliveryFee     decimal.Decimal   `json:"delivery_fee"`
	PaymentType     PaymentType       `json:"payment_type"`
	PaymentRefNo    string            `json:"payment_ref_no,omitempty"`
	PaymentPhoto    string            `json:"payment_photo,omitempty"`
}

type SaleQuote struct {
	LocationID     string          `json:"location_id"`
	PriceType      PriceType       `json:"price_type"`
	Items          []SaleItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DepositTotal   decimal.Decimal `json:"deposit_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
}

type StockReceive struct {
	ID         string    `json:"id" db:"id"`
	Date       time.Time `json:"date" db:"created_at"`
	LocationID string    `json:"location_id" db:"location_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	Qty        int       `json:"qty" db:"qty"`
	UserID     string    `json:"user_id" db:"user_id"`
}

type StockTransfer struct {
	ID             string    `json:"id" db:"id"`
	Date           time.Time `json:"date" db:"created_at"`
	FromLocationID string    `json:"from_location_id" db:"from_location_id"`
	ToLocationID   string    `json:"to_location_id" db:"to_location_id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	Qty            int       `json:"qty" db:"qty"`
	UserID         string    `json:"user_id" db:"user_id"`
}

type StockAdjustment struct {
	ID          string    `json:"id" db:"id"`
	Date        time.Time `json:"date" db:"created_at"`
	LocationID  string    `json:"location_id" db:"location_id"`
	ProductID   string    `json:"product_id" db:"product_id"`
	OldFullQty  int       `json:"old_full_qty" db:"old_full_qty"`
	NewFullQty  int       `json:"new_full_qty" db:"new_full_qty"`
	OldEmptyQty int       `json:"old_empty_qty" db:"old_empty_qty"`
	NewEmptyQty int       `json:"new_empty_qty" db:"new_empty_qty"`
	Reason      string    `json:"reason" db:"reason"`
	UserID      string    `json:"user_id" db:"user_id"`
}

type StockReceiveRequest struct {
	LocationID string `json:"location_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
}

type StockTransferRequest struct {
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
}

type StockAdjustRequest struct {
	LocationID  string `json:"location_id"`
	ProductID   string `json:"product_id"`
	NewFullQty  int    `json:"new_full_qty"`
	NewEmptyQty int    `json:"new_empty_qty"`
	Reason      string `json:"reason"`
}

type StockImportIssue struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type StockImportResult struct {
	LocationID string             `json:"location_id"`
	Received   []StockReceive     `json:"received"`
	Skipped    []StockImportIssue `json:"skipped"`
}

type StockMovements struct {
	Receives    []StockReceive    `json:"receives"`
	Transfers   []StockTransfer   `json:"transfers"`
	Adjustments []StockAdjustment `json:"adjustments"`
}

type Expense struct {
	ID           string          `json:"id" db:"id"`
	Date         time.Time       `json:"date" db:"created_at"`
	Category     string          `json:"category" db:"category"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Note         string          `json:"note,omitempty" db:"note"`
	PhotoDataURL string          `json:"photo_data_url,omitempty" db:"photo_data_url"`
	UserID       string          `json:"user_id" db:"user_id"`
	LocationID   string          `json:"location_id" db:"location_id"`
}

type ExpenseRequest struct {
	LocationID   string          `json:"location_id,omitempty"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Note         string          `json:"note,omitempty"`
	PhotoDataURL string          `json:"photo_data_url,omitempty"`
}

type User struct {
	ID         string `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Email      string `json:"email" db:"email"`
	Password   string `json:"-" db:"password"`
	Role       Role   `json:"role" db:"role"`
	LocationID string `json:"location_id,omitempty" db:"location_id"`
}

type UserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	Role       Role   `json:"role"`
	LocationID string `json:"location_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID     string
	Role       Role
	LocationID string
}

type Settings struct {
	ShopName string          `json:"shop_name" db:"shop_name"`
	TaxRate  decimal.Decimal `json:"tax_rate" db:"tax_rate"`
}

type AuditLog struct {
	ID          string    `json:"id" db:"id"`
	LocationID  string    `json:"location_id" db:"location_id"`
	ActorUserID string    `json:"actor_user_id" db:"actor_user_id"`
	ActorRole   string    `json:"actor_role" db:"actor_role"`
	Action      string    `json:"action" db:"action"`
	EntityType  string    `json:"entity_type" db:"entity_type"`
	EntityID    string    `json:"entity_id" db:"entity_id"`
	Detail      string    `json:"detail" db:"detail"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type ReportRange string

const (
	RangeToday ReportRange = "today"
	RangeWeek  ReportRange = "week"
	RangeMonth ReportRange = "month"
)

type PaymentTotal struct {
	PaymentType PaymentType     `json:"payment_type"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
}

type SalesSummary struct {
	SaleCount  int             `json:"sale_count"`
	GrossSales decimal.Decimal `json:"gross_sales"`
	Deposits   decimal.Decimal `json:"deposits"`
	Discounts  decimal.Decimal `json:"discounts"`
	NetSales   decimal.Decimal `json:"net_sales"`
	ByPayment  []PaymentTotal  `json:"by_payment"`
}

type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Gross     decimal.Decimal `json:"gross"`
}

type DepositSummary struct {
	CollectedLines int             `json:"collected_lines"`
	Collected      decimal.Decimal `json:"collected"`
	WaivedLines    int             `json:"waived_lines"`
	Waived         decimal.Decimal `json:"waived"`
}

type DiscountEntry struct {
	SaleID       string          `json:"sale_id"`
	Date         time.Time       `json:"date"`
	CustomerName string          `json:"customer_name"`
	Percentage   int             `json:"percentage"`
	Amount       decimal.Decimal `json:"amount"`
}

type StockLevel struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	FullQty   int    `json:"full_qty"`
	EmptyQty  int    `json:"empty_qty"`
	LowStock  bool   `json:"low_stock"`
}

type ExpenseCategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

type Report struct {
	ShopName      string                 `json:"shop_name"`
	LocationID    string                 `json:"location_id"`
	Range         ReportRange            `json:"range"`
	From          time.Time              `json:"from"`
	To            time.Time              `json:"to"`
	GeneratedAt   time.Time              `json:"generated_at"`
	Summary       SalesSummary           `json:"summary"`
	Products      []ProductSales         `json:"products"`
	Deposits      DepositSummary         `json:"deposits"`
	Discounts     []DiscountEntry        `json:"discounts"`
	Stock         []StockLevel           `json:"stock"`
	Expenses      []ExpenseCategoryTotal `json:"expenses"`
	TotalExpenses decimal.Decimal        `json:"total_expenses"`
	SimpleProfit  decimal.Decimal        `json:"simple_profit"`
}

type EndOfDayEntry struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	PaymentType PaymentType     `json:"payment_type,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

type EndOfDayReport struct {
	ShopName      string          `json:"shop_name"`
	LocationID    string          `json:"location_id"`
	Date          string          `json:"date"`
	SaleCount     int             `json:"sale_count"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	CountedCash   decimal.Decimal `json:"counted_cash"`
	Variance      decimal.Decimal `json:"variance"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Transactions  []EndOfDayEntry `json:"transactions"`
}

type RestockSuggestion struct {
	LocationID       string `json:"location_id"`
	ProductID        string `json:"product_id"`
	Name             string `json:"name"`
	FullQty          int    `json:"full_qty"`
	Threshold        int    `json:"threshold"`
	RecommendedQty   int    `json:"recommended_qty"`
	Action           string `json:"action"`
	SourceLocationID string `json:"source_location_id,omitempty"`
	Severity         string `json:"severity"`
}

type RestockResponse struct {
	LocationID  string              `json:"location_id"`
	GeneratedAt string              `json:"generated_at"`
	Suggestions []RestockSuggestion `json:"suggestions"`
}

const (
	RestockActionTransfer = "transfer"
	RestockActionReceive  = "receive"
)
