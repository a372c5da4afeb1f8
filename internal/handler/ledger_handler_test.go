package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/handler"
	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/infra/resilience"
	"github.com/boddenberg/creditline/internal/ledger"
	"github.com/boddenberg/creditline/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(t *testing.T, guard *handler.TokenGuard) http.Handler {
	t.Helper()
	opened := time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC)
	acct := ledger.NewAccount(decimal.NewFromInt(1000), decimal.NewFromInt(35), opened)
	metrics := observability.NewMetrics()
	svc := service.NewLedgerService(acct, metrics, zap.NewNop())
	return handler.NewRouter(svc, guard, resilience.NewBulkhead(4), metrics, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestLedgerRoutes_ScenarioC(t *testing.T) {
	router := newRouter(t, nil)

	steps := []struct {
		path, body string
	}{
		{"/v1/account/charges", `{"amount": 500, "date": "2018-07-01T00:00:00"}`},
		{"/v1/account/payments", `{"amount": "200", "date": "2018-07-16"}`},
		{"/v1/account/charges", `{"amount": 100, "date": "2018-07-26"}`},
		{"/v1/account/payments", `{"amount": 200, "date": 1533340800000}`}, // 2018-08-04
	}
	for _, s := range steps {
		rec := do(t, router, http.MethodPost, s.path, s.body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST %s %s: expected 201, got %d (%s)", s.path, s.body, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, router, http.MethodGet, "/v1/account/balance?date=2018-08-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var bal domain.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
		t.Fatal(err)
	}
	if want := "45 days after account opening. Current balance due: $215.77"; bal.Message != want {
		t.Errorf("message = %q, want %q", bal.Message, want)
	}
	if bal.Days != 45 || bal.Balance.StringFixed(2) != "215.77" {
		t.Errorf("days/balance = %d/%s", bal.Days, bal.Balance)
	}

	rec = do(t, router, http.MethodGet, "/v1/account/activity", "")
	var activity []domain.Activity
	if err := json.Unmarshal(rec.Body.Bytes(), &activity); err != nil {
		t.Fatal(err)
	}
	if len(activity) != 4 {
		t.Errorf("activity entries = %d, want 4", len(activity))
	}
	if activity[3].Date != "2018-08-04" {
		t.Errorf("timestamp date = %s, want 2018-08-04", activity[3].Date)
	}

	rec = do(t, router, http.MethodGet, "/v1/account", "")
	var snap domain.AccountSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.LastAccrualDate != "2018-08-14" || snap.OpeningDate != "2018-07-01" {
		t.Errorf("snapshot dates = %s/%s", snap.OpeningDate, snap.LastAccrualDate)
	}
}

func TestLedgerRoutes_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"over limit", http.MethodPost, "/v1/account/charges", `{"amount": 1500, "date": "2018-07-01"}`, http.StatusUnprocessableEntity, "Insufficient credit limit."},
		{"overpayment", http.MethodPost, "/v1/account/payments", `{"amount": 50, "date": "2018-07-02"}`, http.StatusUnprocessableEntity, "Maximum payment allowed is 0.00"},
		{"backdated", http.MethodGet, "/v1/account/balance?date=2018-06-01", "", http.StatusConflict, "Inaccurate Date. Cannot make backdated transactions."},
		{"bad date", http.MethodPost, "/v1/account/charges", `{"amount": 10, "date": "someday"}`, http.StatusBadRequest, ""},
		{"missing date", http.MethodGet, "/v1/account/balance", "", http.StatusBadRequest, ""},
		{"zero amount", http.MethodPost, "/v1/account/charges", `{"amount": 0, "date": "2018-07-01"}`, http.StatusBadRequest, ""},
		{"bad body", http.MethodPost, "/v1/account/payments", `{"amount":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, nil)
			rec := do(t, router, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			msg := errorBody(t, rec)
			if tt.wantError != "" && msg != tt.wantError {
				t.Errorf("error = %q, want %q", msg, tt.wantError)
			}
		})
	}
}

type failingLedger struct{ err error }

func (f failingLedger) Charge(context.Context, decimal.Decimal, time.Time) (*domain.OperationResponse, error) {
	return nil, f.err
}
func (f failingLedger) Payment(context.Context, decimal.Decimal, time.Time) (*domain.OperationResponse, error) {
	return nil, f.err
}
func (f failingLedger) Balance(context.Context, time.Time) (*domain.BalanceResponse, error) {
	return nil, f.err
}
func (f failingLedger) Snapshot(context.Context) domain.AccountSnapshot { return domain.AccountSnapshot{} }
func (f failingLedger) Activity(context.Context) []domain.Activity   { return nil }

func TestLedgerRoutes_UnexpectedErrorIsHidden(t *testing.T) {
	router := handler.NewRouter(failingLedger{err: errors.New("disk on fire")}, nil, nil, observability.NewMetrics(), zap.NewNop())

	rec := do(t, router, http.MethodGet, "/v1/account/balance?date=2018-07-02", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "internal server error" {
		t.Errorf("error = %q", msg)
	}
}

func TestTokenGuard(t *testing.T) {
	guard := handler.NewTokenGuard("test-secret")
	router := newRouter(t, guard)
	body := `{"amount": 100, "date": "2018-07-01"}`

	rec := do(t, router, http.MethodPost, "/v1/account/charges", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/account/charges", body, "Authorization", "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}

	other, err := handler.NewTokenGuard("other-secret").Issue("mallory", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec = do(t, router, http.MethodPost, "/v1/account/charges", body, "Authorization", "Bearer "+other)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: expected 401, got %d", rec.Code)
	}

	expired, err := guard.Issue("ops", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	rec = do(t, router, http.MethodPost, "/v1/account/charges", body, "Authorization", "Bearer "+expired)
	if rec.Code != http.StatusUnauthorized || errorBody(t, rec) != "token expired" {
		t.Fatalf("expired token: got %d %s", rec.Code, rec.Body.String())
	}

	token, err := guard.Issue("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec = do(t, router, http.MethodPost, "/v1/account/charges", body, "Authorization", "Bearer "+token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid token: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Reads stay open.
	rec = do(t, router, http.MethodGet, "/v1/account", "")
	if rec.Code != http.StatusOK {
		t.Errorf("snapshot: expected 200, got %d", rec.Code)
	}
}

func TestTokenGuard_ValidateClaims(t *testing.T) {
	guard := handler.NewTokenGuard("s3cret")
	token, err := guard.Issue("ops", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := guard.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "ops" || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}

	if handler.NewTokenGuard("") != nil {
		t.Error("empty secret should disable the guard")
	}
}

func TestTokenGuard_BalanceQueryRequiresToken(t *testing.T) {
	guard := handler.NewTokenGuard("s3cret")
	router := newRouter(t, guard)

	rec := do(t, router, http.MethodGet, "/v1/account/balance?date=2099-01-01", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("balance without token: expected 401, got %d (%s)", rec.Code, rec.Body.String())
	}

	token, err := guard.Issue("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	auth := []string{"Authorization", "Bearer " + token}

	// The refused query must not have moved the accrual date forward.
	rec = do(t, router, http.MethodPost, "/v1/account/charges", `{"amount": 100, "date": "2018-07-02"}`, auth...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("charge after refused query: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/v1/account/balance?date=2018-07-02", "", auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance with token: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/v1/account/activity", "")
	if rec.Code != http.StatusOK {
		t.Errorf("activity: expected 200, got %d", rec.Code)
	}
}

func TestTokenGuard_SubjectReachesAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	guard := handler.NewTokenGuard("s3cret")
	metrics := observability.NewMetrics()
	acct := ledger.NewAccount(decimal.NewFromInt(1000), decimal.NewFromInt(35), time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC))
	svc := service.NewLedgerService(acct, metrics, zap.NewNop())
	router := handler.NewRouter(svc, guard, nil, metrics, zap.New(core))

	token, err := guard.Issue("treasury", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec := do(t, router, http.MethodPost, "/v1/account/charges", `{"amount": 100, "date": "2018-07-01"}`, "Authorization", "Bearer "+token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("access log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["subject"] != "treasury" || fields["route"] != "/v1/account/charges" {
		t.Errorf("access log fields = %v", fields)
	}
}
