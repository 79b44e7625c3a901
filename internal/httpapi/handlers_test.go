package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/restock"
	"lpgpos/backend/internal/service"
	"lpgpos/backend/internal/store/memory"
)

const testPassword = "test-pass-123"

// newTestAPI builds a full API over a seeded memory store, a real
// AuthManager and a real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_USER_PASSWORD", testPassword)

	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key-with-enough-bytes", time.Hour)
	svc := service.New(repo, restock.NewEngine(nil, 0), service.Config{Passwords: auth})

	api, err := New(svc, auth, Options{AllowedOrigin: "*", LoginRate: "5-M"})
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	return api
}

func login(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	payload, _ := json.Marshal(domain.LoginRequest{Email: email, Password: testPassword})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", email, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func fetchCSRFToken(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf token: %v", err)
	}
	return body["csrf_token"]
}

func call(t *testing.T, handler http.Handler, method, path, token, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := call(t, handler, http.MethodGet, "/healthz", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin(t *testing.T) {
	handler := newTestAPI(t).Handler()

	token := login(t, handler, "Samira.Admin@example.com")
	if token == "" {
		t.Fatalf("expected access token")
	}

	rec := call(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Email: "samira.admin@example.com", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid email or password") {
		t.Fatalf("expected generic credentials message, got %s", rec.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := call(t, handler, http.MethodGet, "/api/v1/products", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = call(t, handler, http.MethodGet, "/api/v1/products", "not-a-token", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestSaleFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "jane.staff@example.com")
	csrf := fetchCSRFToken(t, handler)

	sale := domain.SaleRequest{
		Items:       []domain.SaleLineRequest{{ProductID: "p15", Qty: 1}},
		PaymentType: domain.PaymentCash,
	}
	rec := call(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created domain.Sale
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if created.LocationID != "l2" || !created.Total.Equal(decimal.NewFromInt(1090)) {
		t.Fatalf("unexpected sale %+v", created)
	}

	rec = call(t, handler, http.MethodGet, "/api/v1/sales/"+created.ID, token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected sale lookup 200, got %d", rec.Code)
	}

	sale.LocationID = "l1"
	rec = call(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another location, got %d", rec.Code)
	}

	sale.LocationID = ""
	sale.Items = []domain.SaleLineRequest{{ProductID: "p16", Qty: 1000}}
	rec = call(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", rec.Code)
	}

	sale.Items = []domain.SaleLineRequest{{ProductID: "p15", Qty: 1}}
	sale.PaymentType = domain.PaymentEWallet
	rec = call(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without payment proof, got %d", rec.Code)
	}

	rec = call(t, handler, http.MethodGet, "/api/v1/sales/nope", token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCatalogRoutesAreSuperadminOnly(t *testing.T) {
	handler := newTestAPI(t).Handler()
	csrf := fetchCSRFToken(t, handler)
	product := domain.ProductRequest{Name: "Regulator Clamp", Type: domain.ProductTypeAccessory, LowStockThreshold: 3}

	admin := login(t, handler, "samira.admin@example.com")
	rec := call(t, handler, http.MethodPost, "/api/v1/products", admin, csrf, product)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin, got %d", rec.Code)
	}

	super := login(t, handler, "malvin.super@example.com")
	rec = call(t, handler, http.MethodPost, "/api/v1/products", super, csrf, product)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	rec = call(t, handler, http.MethodDelete, "/api/v1/products/"+created.ID, super, csrf, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = call(t, handler, http.MethodDelete, "/api/v1/products/p25", super, csrf, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for bundle component, got %d", rec.Code)
	}
}

func TestReportFormats(t *testing.T) {
	handler := newTestAPI(t).Handler()
	super := login(t, handler, "malvin.super@example.com")

	rec := call(t, handler, http.MethodGet, "/api/v1/reports?range=week", super, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var rep domain.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.LocationID != domain.AllLocations || rep.Range != domain.RangeWeek {
		t.Fatalf("unexpected report scope %s/%s", rep.LocationID, rep.Range)
	}

	rec = call(t, handler, http.MethodGet, "/api/v1/reports?format=csv&location_id=l1", super, "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("expected csv export, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "section,key,value") {
		t.Fatalf("unexpected csv body %q", rec.Body.String())
	}

	rec = call(t, handler, http.MethodGet, "/api/v1/reports?format=xlsx", super, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected xlsx export, got %d", rec.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 6 {
		t.Fatalf("expected 6 sheets, got %v", f.GetSheetList())
	}

	rec = call(t, handler, http.MethodGet, "/api/v1/reports?range=year", super, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown range, got %d", rec.Code)
	}

	staff := login(t, handler, "jane.staff@example.com")
	rec = call(t, handler, http.MethodGet, "/api/v1/reports", staff, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected staff to be denied reports, got %d", rec.Code)
	}
	rec = call(t, handler, http.MethodGet, "/api/v1/reports/eod?counted_cash=500&format=html", staff, "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("expected staff end-of-day html, got %d", rec.Code)
	}
	rec = call(t, handler, http.MethodGet, "/api/v1/reports/eod?counted_cash=abc", staff, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad counted cash, got %d", rec.Code)
	}
}

func TestImportStockUpload(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "clarence.staff@example.com")
	csrf := fetchCSRFToken(t, handler)

	f := excelize.NewFile()
	for i, row := range [][]any{{"Product ID", "Quantity"}, {"p13", 4}} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var workbook bytes.Buffer
	if err := f.Write(&workbook); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "receipts.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(workbook.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/receive/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var result domain.StockImportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode import result: %v", err)
	}
	if result.LocationID != "l1" || len(result.Received) != 1 || result.Received[0].Qty != 4 {
		t.Fatalf("unexpected import result %+v", result)
	}
}
