package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/core"
	"budgeteer/internal/services"
	"budgeteer/internal/storage/memory"
)

type testAPI struct {
	t       *testing.T
	srv     *Server
	store   *memory.Store
	token   string
	ownerID string
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	store := memory.New()
	u, token, err := store.CreateUser(context.Background(), "alice@example.com")
	require.NoError(t, err)

	summaries := services.NewSummaryService(store, store, 16, time.Minute)
	srv := NewServer(opts, store, Services{
		Ledger:    services.NewLedgerService(store, summaries, nil),
		Budgets:   services.NewBudgetService(store, summaries, nil),
		Summaries: summaries,
	})
	srv.now = func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return &testAPI{t: t, srv: srv, store: store, token: token, ownerID: u.ID}
}

func (a *testAPI) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) json(method, target, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(method, target, r, "application/json")
}

func (a *testAPI) upload(target, filename, content string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, target, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const januaryCSV = `Date,Description,Sub-description,Amount
2024-01-03,Shell Oil 12345,,-45.00
,Pending card auth,,-10.00
2024-01-05,ACME PAYROLL,Salary,2000.00
2024-01-09,Corner Store,,-5.00
`

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.token = ""

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := api.json(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	}
}

type failingPing struct{ *memory.Store }

func (failingPing) Ping(context.Context) error { return errors.New("connection refused") }

func TestReady_StoreDown(t *testing.T) {
	srv := NewServer(Options{}, failingPing{memory.New()}, Services{})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	api := newTestAPI(t, Options{})

	for _, token := range []string{"", "bgt_unknown"} {
		api.token = token
		rr := api.json(http.MethodGet, "/api/transactions", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthenticated", decode[errorResponse](t, rr).Error)
	}
}

func TestTransactions_CreateListUpdateDelete(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.json(http.MethodPost, "/api/transactions",
		`{"date":"2024-01-15","description":"Trader Joe's","amount":"-54.20"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.Transaction](t, rr)
	assert.Equal(t, core.Uncategorized, created.Category, "manual entry is never auto-categorized")
	assert.Equal(t, int64(-5420), created.Amount.Cents)

	api.json(http.MethodPost, "/api/transactions",
		`{"date":"2023-12-31","description":"Rent","amount":-1200,"category":"Rent"}`)

	all := decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions", ""))
	require.Len(t, all, 2)
	assert.Equal(t, created.ID, all[0].ID, "newest first")

	jan := decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions?year=2024&month=1", ""))
	require.Len(t, jan, 1)

	rr = api.json(http.MethodPatch, "/api/transactions/"+created.ID, `{"category":"Groceries","subDescription":"weekly shop"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.Transaction](t, rr)
	assert.Equal(t, core.Groceries, updated.Category)
	require.NotNil(t, updated.SubDescription)
	assert.Equal(t, "weekly shop", *updated.SubDescription)

	rr = api.json(http.MethodDelete, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = api.json(http.MethodDelete, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.json(http.MethodDelete, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, rr))
}

func TestTransactions_ValidationAndParseErrors(t *testing.T) {
	api := newTestAPI(t, Options{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		field  string
	}{
		{"bad amount", http.MethodPost, "/api/transactions", `{"date":"2024-01-15","description":"x","amount":"abc"}`, http.StatusUnprocessableEntity, "amount"},
		{"missing date", http.MethodPost, "/api/transactions", `{"description":"x","amount":1}`, http.StatusUnprocessableEntity, "date"},
		{"unknown category", http.MethodPost, "/api/transactions", `{"date":"2024-01-15","description":"x","amount":1,"category":"Lottery"}`, http.StatusUnprocessableEntity, "category"},
		{"malformed json", http.MethodPost, "/api/transactions", `{"date":`, http.StatusBadRequest, ""},
		{"batch without array", http.MethodPost, "/api/transactions/batch", `{}`, http.StatusBadRequest, ""},
		{"bad list month", http.MethodGet, "/api/transactions?year=2024&month=13", "", http.StatusUnprocessableEntity, "month"},
		{"patch unknown id", http.MethodPatch, "/api/transactions/nope", `{"amount":1}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.json(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.field, decode[errorResponse](t, rr).Field)
		})
	}
}

func TestTransactions_OtherOwnersAreNotFound(t *testing.T) {
	api := newTestAPI(t, Options{})
	rr := api.json(http.MethodPost, "/api/transactions", `{"date":"2024-01-15","description":"Coffee","amount":-3}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[core.Transaction](t, rr).ID

	_, bobToken, err := api.store.CreateUser(context.Background(), "bob@example.com")
	require.NoError(t, err)
	api.token = bobToken

	assert.Equal(t, http.StatusNotFound, api.json(http.MethodPatch, "/api/transactions/"+id, `{"amount":1}`).Code)
	assert.Equal(t, http.StatusNotFound, api.json(http.MethodDelete, "/api/transactions/"+id, "").Code)
	assert.Empty(t, decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions", "")))
}

func TestTransactions_Batch(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.json(http.MethodPost, "/api/transactions/batch", `{"transactions":[
		{"date":"2024-01-02","description":"Shell","amount":-30},
		{"date":"2024-01-03","description":"Paycheck","amount":"1500.00","category":null}
	]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[batchResponse](t, rr).Created)

	txs := decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions", ""))
	for _, tx := range txs {
		assert.Equal(t, core.Uncategorized, tx.Category, "programmatic batches are not auto-categorized")
	}

	rr = api.json(http.MethodPost, "/api/transactions/batch", `{"transactions":[
		{"date":"2024-01-02","description":"ok","amount":-30},
		{"date":"2024-01-02","description":"bad","amount":"x"}
	]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 2, decode[errorResponse](t, rr).Row)
	assert.Len(t, decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions", "")), 2, "failing batch stores nothing")
}

func TestUpload_PreviewAndImport(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.upload("/api/transactions/upload?preview=true", "jan.csv", januaryCSV)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	preview := decode[core.Batch](t, rr)
	require.Len(t, preview.Transactions, 3, "row with empty Date is dropped")
	assert.Equal(t, core.Gas, preview.Transactions[0].Category)
	assert.Equal(t, 1, preview.AutoCategorized)
	assert.Empty(t, decode[[]core.Transaction](t, api.json(http.MethodGet, "/api/transactions", "")), "preview stores nothing")

	rr = api.upload("/api/transactions/upload", "jan.csv", januaryCSV)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[importResponse](t, rr)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.AutoCategorized)
	assert.Equal(t, "Successfully imported 3 transactions", res.Message)
}

func TestUpload_Errors(t *testing.T) {
	api := newTestAPI(t, Options{MaxUploadBytes: 512})

	rr := api.upload("/api/transactions/upload", "jan.xlsx", januaryCSV)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "file", decode[errorResponse](t, rr).Field)

	rr = api.upload("/api/transactions/upload", "bad.csv", "Date,Description,Amount\n2024-01-01,\"unterminated,1\n")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotZero(t, decode[errorResponse](t, rr).Line)

	rr = api.upload("/api/transactions/upload", "bad.csv", "Date,Description,Amount\n2024-01-01,Coffee,abc\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 1, decode[errorResponse](t, rr).Row)

	rr = api.upload("/api/transactions/upload", "big.csv", "Date,Description,Amount\n"+strings.Repeat("2024-01-01,Coffee,-1\n", 100))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = api.do(http.MethodPost, "/api/transactions/upload", strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBudgetsAndSummary(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.json(http.MethodPost, "/api/budgets", `{"category":"Gas","limit":200}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	gas := decode[core.Budget](t, rr)

	rr = api.json(http.MethodPost, "/api/budgets", `{"category":"gas","limit":"150"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, gas.ID, decode[core.Budget](t, rr).ID, "upsert keeps one budget per category")

	rr = api.json(http.MethodPost, "/api/budgets", `{"category":"Rent","limit":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	require.Equal(t, http.StatusCreated, api.upload("/api/transactions/upload", "jan.csv", januaryCSV).Code)

	rr = api.json(http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := decode[core.MonthlySummary](t, rr)
	assert.Equal(t, 2024, summary.Year)
	assert.Equal(t, 1, summary.Month, "defaults to the current month")
	assert.Equal(t, int64(200000), summary.TotalIncome.Cents)
	assert.Equal(t, int64(5000), summary.TotalExpenses.Cents)
	require.Len(t, summary.CategoryBreakdown, 2)
	gasRow := summary.CategoryBreakdown[0]
	assert.Equal(t, "Gas", gasRow.Category)
	assert.Equal(t, int64(15000), gasRow.Limit.Cents)
	assert.Equal(t, int64(4500), gasRow.Spent.Cents)
	assert.Equal(t, int64(10500), gasRow.Remaining.Cents)
	assert.InDelta(t, 30, gasRow.PercentUsed, 1e-9)
	assert.Equal(t, core.UncategorizedLabel, summary.CategoryBreakdown[1].Category)
	assert.Equal(t, float64(100), summary.CategoryBreakdown[1].PercentUsed)

	// a budget change is visible in the next summary
	rr = api.json(http.MethodPatch, "/api/budgets/"+gas.ID, `{"limit":"90"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary = decode[core.MonthlySummary](t, api.json(http.MethodGet, "/api/summary?year=2024&month=1", ""))
	assert.Equal(t, float64(50), summary.CategoryBreakdown[0].PercentUsed)

	rr = api.json(http.MethodGet, "/api/summary?month=13", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	assert.Len(t, decode[[]core.Budget](t, api.json(http.MethodGet, "/api/budgets", "")), 1)
	assert.Equal(t, http.StatusOK, api.json(http.MethodDelete, "/api/budgets/"+gas.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, api.json(http.MethodDelete, "/api/budgets/"+gas.ID, "").Code)

	api.json(http.MethodPost, "/api/budgets", `{"category":"Dining","limit":50}`)
	rr = api.json(http.MethodDelete, "/api/budgets", "")
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, rr))
}

func TestCategorize(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.json(http.MethodGet, "/api/categorize?description=STARBUCKS+%23123", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[services.Suggestion](t, rr)
	assert.True(t, got.Matched)
	assert.Equal(t, core.Dining, got.Category)

	rr = api.json(http.MethodGet, "/api/categorize?description=Mystery+Vendor", "")
	got = decode[services.Suggestion](t, rr)
	assert.False(t, got.Matched)
	assert.Equal(t, core.UncategorizedLabel, got.Label)
	assert.Contains(t, rr.Body.String(), `"category":null`)
}

func TestRateLimit_MutatingRequestsPerOwner(t *testing.T) {
	api := newTestAPI(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr := api.json(http.MethodPost, "/api/budgets", `{"category":"Gas","limit":10}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := api.json(http.MethodPost, "/api/budgets", `{"category":"Gas","limit":10}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/budgets", "").Code, "reads are not limited")

	_, bobToken, err := api.store.CreateUser(context.Background(), "bob@example.com")
	require.NoError(t, err)
	api.token = bobToken
	assert.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/budgets", `{"category":"Gas","limit":10}`).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t, Options{})
	rr := api.json(http.MethodPut, "/api/budgets", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
