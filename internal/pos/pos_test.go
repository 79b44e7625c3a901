package pos

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog() map[string]domain.Product {
	return map[string]domain.Product{
		"compA": {ID: "compA", Name: "Butane Canister", Price: dec("53.10"), WholesalePrice: dec("45"), DepositAmt: decimal.Zero},
		"compB": {ID: "compB", Name: "Portable Stove", Price: dec("1003"), WholesalePrice: dec("850"), DepositAmt: decimal.Zero},
		"cyl11": {ID: "cyl11", Name: "Gasul 11 kg", Type: domain.ProductTypeLPG, Price: dec("1090"), WholesalePrice: dec("923.73"), DepositAmt: dec("1200")},
		"set": {
			ID:       "set",
			Name:     "Stove Set Promo",
			Price:    dec("599"),
			IsBundle: true,
			BundleItems: []domain.BundleItem{
				{ProductID: "compA", Quantity: 2},
				{ProductID: "compB", Quantity: 1},
			},
		},
	}
}

func TestBundleAvailabilityIsMinimumOfComponentFills(t *testing.T) {
	bundle := testCatalog()["set"]

	cases := []struct {
		stock map[string]int
		want  int
	}{
		{map[string]int{"compA": 10, "compB": 10}, 5},
		{map[string]int{"compA": 7, "compB": 10}, 3},
		{map[string]int{"compA": 100, "compB": 2}, 2},
		{map[string]int{"compA": 1, "compB": 10}, 0},
		{map[string]int{"compB": 10}, 0},
	}
	for _, tc := range cases {
		if got := BundleAvailability(bundle, tc.stock); got != tc.want {
			t.Fatalf("stock %v: expected %d bundles, got %d", tc.stock, tc.want, got)
		}
	}
}

func TestBundleWithoutComponentsIsUnavailable(t *testing.T) {
	bundle := domain.Product{ID: "empty", IsBundle: true}
	if got := BundleAvailability(bundle, map[string]int{"empty": 40}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestDecomposeBundleDeductsComponentsOnly(t *testing.T) {
	catalog := testCatalog()
	items := []domain.SaleItem{NewLine(catalog["set"], domain.PriceRetail, 1)}

	deductions := Decompose(items, catalog)
	if deductions["compA"] != 2 {
		t.Fatalf("expected 2 units of compA, got %d", deductions["compA"])
	}
	if deductions["compB"] != 1 {
		t.Fatalf("expected 1 unit of compB, got %d", deductions["compB"])
	}
	if _, ok := deductions["set"]; ok {
		t.Fatalf("bundle id must not be deducted, got %d", deductions["set"])
	}
}

func TestDecomposeMergesBundleAndDirectLines(t *testing.T) {
	catalog := testCatalog()
	items := []domain.SaleItem{
		NewLine(catalog["set"], domain.PriceRetail, 3),
		NewLine(catalog["compA"], domain.PriceRetail, 4),
	}

	deductions := Decompose(items, catalog)
	if deductions["compA"] != 10 {
		t.Fatalf("expected 3*2+4=10 units of compA, got %d", deductions["compA"])
	}
	if deductions["compB"] != 3 {
		t.Fatalf("expected 3 units of compB, got %d", deductions["compB"])
	}
}

func TestTotalsWaiveDepositWhenEmptyReturned(t *testing.T) {
	catalog := testCatalog()
	line := NewLine(catalog["cyl11"], domain.PriceRetail, 1)
	if !line.ReturnedEmpty {
		t.Fatalf("expected new deposit line to default to returned empty")
	}

	totals := Checkout{Items: []domain.SaleItem{line}, PaymentType: domain.PaymentCash}.Totals()
	if !totals.Subtotal.Equal(dec("1090")) {
		t.Fatalf("expected subtotal 1090, got %s", totals.Subtotal)
	}
	if !totals.DepositTotal.IsZero() {
		t.Fatalf("expected waived deposit, got %s", totals.DepositTotal)
	}
	if !totals.Total.Equal(dec("1090")) {
		t.Fatalf("expected total 1090, got %s", totals.Total)
	}
}

func TestTotalsComposeDepositDiscountAndDelivery(t *testing.T) {
	catalog := testCatalog()
	line := NewLine(catalog["cyl11"], domain.PriceRetail, 2)
	line.ReturnedEmpty = false

	checkout := Checkout{
		Items:       []domain.SaleItem{line},
		Discount:    domain.DiscountInfo{Type: domain.DiscountSeniorPWD, Percentage: 5, CustomerName: "Lola", CustomerIDPhotoURL: "data:image/png;base64,AA"},
		DeliveryFee: dec("50"),
		PaymentType: domain.PaymentCash,
	}
	totals := checkout.Totals()

	// 2180 + 2400 - 109 + 50
	if !totals.Total.Equal(dec("4521")) {
		t.Fatalf("expected total 4521, got %s", totals.Total)
	}
	want := totals.Subtotal.Add(totals.DepositTotal).Sub(totals.DiscountAmount).Add(totals.DeliveryFee)
	if !totals.Total.Equal(want) {
		t.Fatalf("total %s does not match its parts %s", totals.Total, want)
	}
	if !totals.Tax.IsZero() {
		t.Fatalf("expected zero tax, got %s", totals.Tax)
	}
}

func TestSeniorDiscountTenPercentRequiresIDPhoto(t *testing.T) {
	if got := DiscountAmount(dec("1000"), 10); !got.Equal(dec("100")) {
		t.Fatalf("expected discount 100, got %s", got)
	}

	checkout := Checkout{
		Items:       []domain.SaleItem{{ProductID: "x", Qty: 1, UnitPrice: dec("1000")}},
		Discount:    domain.DiscountInfo{Type: domain.DiscountSeniorPWD, Percentage: 10, CustomerName: "Lolo Ben"},
		PaymentType: domain.PaymentCash,
	}
	err := checkout.Validate()
	if !errors.Is(err, ErrDiscountDetailsRequired) {
		t.Fatalf("expected missing ID photo to fail, got %v", err)
	}
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected error to wrap ErrInvalidTransaction")
	}

	checkout.Discount.CustomerIDPhotoURL = "data:image/jpeg;base64,AA"
	if err := checkout.Validate(); err != nil {
		t.Fatalf("expected valid checkout, got %v", err)
	}
	if got := checkout.Totals().DiscountAmount; !got.Equal(dec("100")) {
		t.Fatalf("expected discount 100, got %s", got)
	}
}

func TestDiscountPercentageOutsideSetRejected(t *testing.T) {
	checkout := Checkout{
		Items:       []domain.SaleItem{{ProductID: "x", Qty: 1, UnitPrice: dec("1000")}},
		Discount:    domain.DiscountInfo{Type: domain.DiscountSeniorPWD, Percentage: 12, CustomerName: "A", CustomerIDPhotoURL: "B"},
		PaymentType: domain.PaymentCash,
	}
	if err := checkout.Validate(); !errors.Is(err, ErrDiscountPercent) {
		t.Fatalf("expected percentage error, got %v", err)
	}
}

func TestTraceablePaymentsRequireReferenceAndProof(t *testing.T) {
	base := Checkout{Items: []domain.SaleItem{{ProductID: "x", Qty: 1, UnitPrice: dec("10")}}}

	for _, method := range []domain.PaymentType{domain.PaymentEWallet, domain.PaymentBank} {
		c := base
		c.PaymentType = method
		c.PaymentRefNo = "REF-1"
		if err := c.Validate(); !errors.Is(err, ErrPaymentProofRequired) {
			t.Fatalf("%s without photo: expected proof error, got %v", method, err)
		}
		c.PaymentPhotoURL = "data:image/png;base64,AA"
		if err := c.Validate(); err != nil {
			t.Fatalf("%s with proof: unexpected error %v", method, err)
		}
	}

	cash := base
	cash.PaymentType = domain.PaymentCash
	if err := cash.Validate(); err != nil {
		t.Fatalf("cash needs no proof, got %v", err)
	}
}

func TestApplyPriceTierRewritesEveryLine(t *testing.T) {
	catalog := testCatalog()
	items := []domain.SaleItem{
		NewLine(catalog["cyl11"], domain.PriceRetail, 1),
		NewLine(catalog["compB"], domain.PriceRetail, 2),
	}

	wholesale := ApplyPriceTier(items, catalog, domain.PriceWholesale)
	if !wholesale[0].UnitPrice.Equal(dec("923.73")) || !wholesale[1].UnitPrice.Equal(dec("850")) {
		t.Fatalf("expected wholesale prices, got %s and %s", wholesale[0].UnitPrice, wholesale[1].UnitPrice)
	}
	if !items[0].UnitPrice.Equal(dec("1090")) {
		t.Fatalf("input cart must not be mutated")
	}
}

func TestBundleDepositSumsComponentDeposits(t *testing.T) {
	catalog := testCatalog()
	bundle := domain.Product{ID: "b", IsBundle: true, BundleItems: []domain.BundleItem{
		{ProductID: "cyl11", Quantity: 2},
		{ProductID: "compB", Quantity: 1},
	}}
	if got := BundleDeposit(bundle, catalog); !got.Equal(dec("2400")) {
		t.Fatalf("expected 2400, got %s", got)
	}
}

func TestValidateBundleRejectsNestedBundles(t *testing.T) {
	catalog := testCatalog()
	nested := domain.Product{ID: "mega", IsBundle: true, BundleItems: []domain.BundleItem{{ProductID: "set", Quantity: 1}}}
	if _, err := ValidateBundle(nested, catalog); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected nested bundle to be rejected, got %v", err)
	}

	ok := domain.Product{ID: "duo", IsBundle: true, BundleItems: []domain.BundleItem{
		{ProductID: "compA", Quantity: 1},
		{ProductID: "compA", Quantity: 2},
	}}
	items, err := ValidateBundle(ok, catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected merged component with qty 3, got %+v", items)
	}
}
