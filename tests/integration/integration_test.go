package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/handler"
	"github.com/lmoreira/fintrack-api/internal/infra/cache"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/infra/postgrest"
	"github.com/lmoreira/fintrack-api/internal/infra/resilience"
	"github.com/lmoreira/fintrack-api/internal/service"

	"go.uber.org/zap"
)

// fakePostgREST is a minimal in-memory PostgREST: rows are JSON objects
// per table, filtered with the eq/in/gte/lte operators the adapter uses.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{tables: make(map[string][]map[string]any)}
}

func (f *fakePostgREST) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		if table == r.URL.Path {
			http.NotFound(w, r)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			var out []map[string]any
			for _, row := range f.tables[table] {
				if f.rowMatches(row, r) {
					out = append(out, row)
				}
			}
			if out == nil {
				out = []map[string]any{}
			}
			json.NewEncoder(w).Encode(out)

		case http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.tables[table] = append(f.tables[table], row)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]map[string]any{row})

		case http.MethodPatch:
			var updates map[string]any
			if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, row := range f.tables[table] {
				if f.rowMatches(row, r) {
					for k, v := range updates {
						row[k] = v
					}
				}
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			var kept []map[string]any
			for _, row := range f.tables[table] {
				if !f.rowMatches(row, r) {
					kept = append(kept, row)
				}
			}
			f.tables[table] = kept
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (f *fakePostgREST) rowMatches(row map[string]any, r *http.Request) bool {
	for key, exprs := range r.URL.Query() {
		if key == "order" || key == "limit" || key == "select" {
			continue
		}
		val := fmt.Sprintf("%v", row[key])
		for _, expr := range exprs {
			switch {
			case strings.HasPrefix(expr, "eq."):
				if val != expr[len("eq."):] {
					return false
				}
			case strings.HasPrefix(expr, "in.(") && strings.HasSuffix(expr, ")"):
				match := false
				for _, alt := range strings.Split(expr[len("in.("):len(expr)-1], ",") {
					if val == alt {
						match = true
						break
					}
				}
				if !match {
					return false
				}
			case strings.HasPrefix(expr, "gte."):
				if val < expr[len("gte."):] {
					return false
				}
			case strings.HasPrefix(expr, "lte."):
				if val > expr[len("lte."):] {
					return false
				}
			}
		}
	}
	return true
}

func newTestServer(t *testing.T) (http.Handler, *httptest.Server) {
	t.Helper()

	backend := httptest.NewServer(newFakePostgREST().handler())
	t.Cleanup(backend.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration-test")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := postgrest.NewClient(httpClient, backend.URL, "anon-key", "service-key", cb, cfg, logger)

	ledgerSvc := service.NewLedgerService(
		store,
		cache.New[[]domain.Account](time.Minute),
		cache.New[[]domain.Category](time.Minute),
		metrics,
		logger,
	)
	insightsSvc := service.NewInsightsService(store, metrics, logger)
	authSvc := service.NewAuthService(store, "integration-secret", 15*time.Minute, time.Hour, logger)

	return handler.NewRouter(ledgerSvc, insightsSvc, authSvc, metrics, logger), backend
}

// do drives one JSON request through the router and decodes the response
// into out when non-nil.
func do(t *testing.T, router http.Handler, method, path, token string, payload, out any) int {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
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
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return rec.Code
}

func TestIntegration_FullFlow(t *testing.T) {
	router, _ := newTestServer(t)

	// --- Register and log in ---
	var reg domain.RegisterResponse
	code := do(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "integration-pass",
	}, &reg)
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}

	var login domain.LoginResponse
	code = do(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "integration-pass",
	}, &login)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	token := login.AccessToken

	// --- Create a ledger ---
	var ledger domain.Ledger
	code = do(t, router, http.MethodPost, "/v1/ledgers", token,
		map[string]string{"name": "Household"}, &ledger)
	if code != http.StatusCreated {
		t.Fatalf("create ledger: expected 201, got %d", code)
	}
	base := "/v1/ledgers/" + ledger.ID

	// --- Build a small account forest ---
	var assets domain.Account
	code = do(t, router, http.MethodPost, base+"/accounts", token, service.AccountInput{
		Name: "Assets", Type: "asset", IsGroup: true,
	}, &assets)
	if code != http.StatusCreated {
		t.Fatalf("create group account: expected 201, got %d", code)
	}

	var bank domain.Account
	code = do(t, router, http.MethodPost, base+"/accounts", token, service.AccountInput{
		Name: "Bank", Type: "asset", ParentID: assets.ID, Balance: 100,
	}, &bank)
	if code != http.StatusCreated {
		t.Fatalf("create bank account: expected 201, got %d", code)
	}

	var savings domain.Account
	code = do(t, router, http.MethodPost, base+"/accounts", token, service.AccountInput{
		Name: "Savings", Type: "asset", ParentID: assets.ID,
	}, &savings)
	if code != http.StatusCreated {
		t.Fatalf("create savings account: expected 201, got %d", code)
	}

	// --- Categories ---
	var salary domain.Category
	code = do(t, router, http.MethodPost, base+"/categories", token, service.CategoryInput{
		Name: "Salary", Type: "income",
	}, &salary)
	if code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d", code)
	}

	var groceries domain.Category
	code = do(t, router, http.MethodPost, base+"/categories", token, service.CategoryInput{
		Name: "Groceries", Type: "expense",
	}, &groceries)
	if code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d", code)
	}

	// --- Post transactions ---
	var income domain.Transaction
	code = do(t, router, http.MethodPost, base+"/transactions", token, service.TransactionInput{
		AccountID: bank.ID, Type: "income", Amount: 2500, Payee: "Employer", CategoryID: salary.ID,
	}, &income)
	if code != http.StatusCreated {
		t.Fatalf("create income: expected 201, got %d", code)
	}

	code = do(t, router, http.MethodPost, base+"/transactions", token, service.TransactionInput{
		AccountID: bank.ID, Type: "expense", Amount: 300, CategoryID: groceries.ID,
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d", code)
	}

	// --- Transfer between accounts ---
	var transfer struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	code = do(t, router, http.MethodPost, base+"/transfers", token, domain.TransferRequest{
		FromAccountID: bank.ID, ToAccountID: savings.ID, Amount: 500,
	}, &transfer)
	if code != http.StatusCreated {
		t.Fatalf("create transfer: expected 201, got %d", code)
	}
	if len(transfer.Transactions) != 2 {
		t.Fatalf("expected 2 transfer legs, got %d", len(transfer.Transactions))
	}

	// --- Account tree with rolled-up balances ---
	var tree struct {
		Rows []domain.AccountTreeRow `json:"rows"`
	}
	code = do(t, router, http.MethodGet, base+"/accounts/tree?show_zero=true", token, nil, &tree)
	if code != http.StatusOK {
		t.Fatalf("account tree: expected 200, got %d", code)
	}

	byName := make(map[string]domain.AccountTreeRow)
	for _, row := range tree.Rows {
		byName[row.Account.Name] = row
	}
	// 100 opening + 2500 income - 300 expense - 500 transfer out.
	if got := byName["Bank"].Balance; got != 1800 {
		t.Errorf("expected Bank balance 1800, got %f", got)
	}
	if got := byName["Savings"].Balance; got != 500 {
		t.Errorf("expected Savings balance 500, got %f", got)
	}
	if got := byName["Assets"].Balance; got != 2300 {
		t.Errorf("expected Assets rollup 2300, got %f", got)
	}
	if byName["Assets"].Tone != "group" {
		t.Errorf("expected group tone for Assets, got %s", byName["Assets"].Tone)
	}

	// --- Insights ---
	var summary domain.PeriodSummary
	code = do(t, router, http.MethodGet, base+"/insights/summary", token, nil, &summary)
	if code != http.StatusOK {
		t.Fatalf("insights summary: expected 200, got %d", code)
	}
	if summary.TotalIncome != 2500 {
		t.Errorf("expected total income 2500, got %f", summary.TotalIncome)
	}
	if summary.TotalExpenses != 300 {
		t.Errorf("expected total expenses 300, got %f", summary.TotalExpenses)
	}
	if summary.NetCashflow != 2200 {
		t.Errorf("expected net cashflow 2200, got %f", summary.NetCashflow)
	}

	var insights struct {
		Categories []domain.CategoryInsight `json:"categories"`
	}
	code = do(t, router, http.MethodGet, base+"/insights/categories", token, nil, &insights)
	if code != http.StatusOK {
		t.Fatalf("insights categories: expected 200, got %d", code)
	}
	catByName := make(map[string]domain.CategoryInsight)
	for _, row := range insights.Categories {
		catByName[row.Name] = row
	}
	if got := catByName["Salary"].Total; got != 2500 {
		t.Errorf("expected Salary total 2500, got %f", got)
	}
	if got := catByName["Groceries"].Total; got != -300 {
		t.Errorf("expected Groceries total -300, got %f", got)
	}

	// --- Deleting the income reverses the balances ---
	code = do(t, router, http.MethodDelete, base+"/transactions/"+income.ID, token, nil, nil)
	if code != http.StatusNoContent {
		t.Fatalf("delete transaction: expected 204, got %d", code)
	}

	code = do(t, router, http.MethodGet, base+"/accounts/tree?show_zero=true", token, nil, &tree)
	if code != http.StatusOK {
		t.Fatalf("account tree after delete: expected 200, got %d", code)
	}
	byName = make(map[string]domain.AccountTreeRow)
	for _, row := range tree.Rows {
		byName[row.Account.Name] = row
	}
	if got := byName["Bank"].Balance; got != -700 {
		t.Errorf("expected Bank balance -700 after reversal, got %f", got)
	}
}

func TestIntegration_RejectsUnbalancedSplit(t *testing.T) {
	router, _ := newTestServer(t)

	var reg domain.RegisterResponse
	do(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Email: "bob@example.com", Name: "Bob", Password: "integration-pass",
	}, &reg)

	var login domain.LoginResponse
	do(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "bob@example.com", Password: "integration-pass",
	}, &login)
	token := login.AccessToken

	var ledger domain.Ledger
	do(t, router, http.MethodPost, "/v1/ledgers", token, map[string]string{"name": "Book"}, &ledger)
	base := "/v1/ledgers/" + ledger.ID

	var account domain.Account
	do(t, router, http.MethodPost, base+"/accounts", token, service.AccountInput{
		Name: "Bank", Type: "asset",
	}, &account)

	var category domain.Category
	do(t, router, http.MethodPost, base+"/categories", token, service.CategoryInput{
		Name: "Groceries", Type: "expense",
	}, &category)

	code := do(t, router, http.MethodPost, base+"/transactions", token, service.TransactionInput{
		AccountID: account.ID,
		Type:      "expense",
		Amount:    50,
		Splits: []domain.Share{
			{Amount: 30, CategoryID: category.ID},
			{Amount: 10, CategoryID: category.ID},
		},
	}, nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unbalanced split, got %d", code)
	}
}
