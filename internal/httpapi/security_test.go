package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/service"
	"lpgpos/backend/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := newTestAPI(t).Handler()
	res := call(t, handler, http.MethodGet, "/healthz", "", "", nil)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	handler := newTestAPI(t).Handler()
	res := call(t, handler, http.MethodOptions, "/api/v1/sales", "", "", nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if !strings.Contains(res.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("expected DELETE in allowed methods")
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	handler := newTestAPI(t).Handler()
	body, _ := json.Marshal(domain.LoginRequest{Email: "jane.staff@example.com", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		handler.ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.9:5000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected another client to be unaffected, got %d", res.Code)
	}
}

func TestInvalidLoginRateIsRejected(t *testing.T) {
	if _, err := New(nil, NewAuthManager("secret", 0), Options{LoginRate: "lots"}); err == nil {
		t.Fatalf("expected invalid login rate to fail")
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"email":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "samira.admin@example.com")
	expense := domain.ExpenseRequest{Category: "Fuel"}

	res := call(t, handler, http.MethodPost, "/api/v1/expenses", token, "", expense)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", res.Code)
	}
	res = call(t, handler, http.MethodPost, "/api/v1/expenses", token, "forged", expense)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with forged csrf token, got %d", res.Code)
	}
	res = call(t, handler, http.MethodDelete, "/api/v1/expenses/x", token, "", nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for delete without csrf token, got %d", res.Code)
	}

	csrf := fetchCSRFToken(t, handler)
	res = call(t, handler, http.MethodPost, "/api/v1/expenses", token, csrf, expense)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected validation 400 once csrf passes, got %d", res.Code)
	}
}

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: product p99", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: short", store.ErrInsufficientStock), http.StatusConflict},
		{store.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: bad", store.ErrInvalidTransaction), http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	res := httptest.NewRecorder()
	writeServiceError(res, errors.New("pq: relation sales does not exist"))
	if res.Code != http.StatusInternalServerError || strings.Contains(res.Body.String(), "relation") {
		t.Fatalf("expected generic 500 body, got %d %s", res.Code, res.Body.String())
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}
