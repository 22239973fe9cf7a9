package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/prefs"
	"expenses/internal/services"
	"expenses/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	store *storage.MemoryStore
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := services.NewLedger(store, log.Discard(), services.WithClock(func() time.Time { return testNow }))
	prefsSvc := prefs.NewService(prefs.NewMemoryStore(), log.Discard())
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	srv, err := NewServer(Config{Addr: ":0", RateLimitPerMinute: 1000}, ledger, prefsSvc, log.Discard(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rec).Error
}

func (ts *testServer) category(t *testing.T, name string) categoryJSON {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/categories", map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rec.Code, rec.Body.String())
	}
	return decode[categoryJSON](t, rec)
}

func (ts *testServer) expense(t *testing.T, amount any, desc, date, categoryID string) expenseJSON {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/expenses", map[string]any{
		"amount": amount, "description": desc, "date": date, "categoryId": categoryID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rec.Code, rec.Body.String())
	}
	return decode[expenseJSON](t, rec)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	failing := newTestServer(t, WithReadinessCheck("redis", func(context.Context) error { return errors.New("connection refused") }))
	rec := failing.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("readyz body = %s", rec.Body.String())
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/categories", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if !strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/categories", map[string]string{"name": "  "})
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Name is required" {
		t.Fatalf("blank name: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodPost, "/categories", "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: %d", rec.Code)
	}

	food := ts.category(t, " Food ")
	if food.Name != "Food" || food.ID == "" {
		t.Fatalf("created %+v", food)
	}
	ts.category(t, "Bills")

	list := decode[[]categoryJSON](t, ts.do(t, http.MethodGet, "/categories", nil))
	if len(list) != 2 || list[0].Name != "Bills" {
		t.Fatalf("list = %+v", list)
	}

	got := decode[categoryJSON](t, ts.do(t, http.MethodGet, "/categories/"+food.ID, nil))
	if got.ExpenseCount == nil || *got.ExpenseCount != 0 {
		t.Fatalf("expenseCount = %v", got.ExpenseCount)
	}

	rec = ts.do(t, http.MethodPut, "/categories/"+food.ID, map[string]string{"name": "Groceries"})
	if rec.Code != http.StatusOK || decode[categoryJSON](t, rec).Name != "Groceries" {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodDelete, "/categories/"+food.ID, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"success\":true}\n" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodGet, "/categories/"+food.ID, nil)
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Category not found" {
		t.Fatalf("get deleted: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCategoryErrors(t *testing.T) {
	ts := newTestServer(t)
	missing := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"get bad id", http.MethodGet, "/categories/nope", nil, http.StatusBadRequest, "Invalid category ID"},
		{"get missing", http.MethodGet, "/categories/" + missing, nil, http.StatusNotFound, "Category not found"},
		{"update missing", http.MethodPut, "/categories/" + missing, map[string]string{"name": "x"}, http.StatusNotFound, "Category not found"},
		{"update blank", http.MethodPut, "/categories/" + missing, map[string]string{"name": ""}, http.StatusBadRequest, "Name is required"},
		{"delete missing", http.MethodDelete, "/categories/" + missing, nil, http.StatusNotFound, "Category not found"},
		{"name too long", http.MethodPost, "/categories", map[string]string{"name": strings.Repeat("x", 101)}, http.StatusBadRequest, "Name must be at most 100 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.status || errorOf(t, rec) != tt.msg {
				t.Fatalf("got %d %s, want %d %q", rec.Code, rec.Body.String(), tt.status, tt.msg)
			}
		})
	}
}

func TestDeleteCategoryWithExpenses(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	e := ts.expense(t, 10, "Lunch", "2024-03-01", food.ID)

	rec := ts.do(t, http.MethodDelete, "/categories/"+food.ID, nil)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Cannot delete category with expenses" {
		t.Fatalf("delete in use: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[categoryJSON](t, ts.do(t, http.MethodGet, "/categories/"+food.ID, nil))
	if got.ExpenseCount == nil || *got.ExpenseCount != 1 {
		t.Fatalf("expenseCount = %v", got.ExpenseCount)
	}

	if rec := ts.do(t, http.MethodDelete, "/expenses/"+e.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete expense: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/categories/"+food.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete category: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	bills := ts.category(t, "Bills")

	e := ts.expense(t, "12.345", " Pizza ", "2024-03-01", food.ID)
	if e.Amount.String() != "12.35" || e.Description != "Pizza" || e.Category.Name != "Food" {
		t.Fatalf("created %+v", e)
	}
	if !e.Date.Equal(core.NewDate(2024, 3, 1)) {
		t.Fatalf("date = %v", e.Date)
	}

	got := decode[expenseJSON](t, ts.do(t, http.MethodGet, "/expenses/"+e.ID, nil))
	if got.ID != e.ID {
		t.Fatalf("get = %+v", got)
	}

	rec := ts.do(t, http.MethodPut, "/expenses/"+e.ID, map[string]any{
		"amount": 20, "description": "Bill", "date": "2024-03-02T10:00:00Z", "categoryId": bills.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	upd := decode[expenseJSON](t, rec)
	if upd.Amount.String() != "20" || upd.CategoryID != bills.ID || upd.Category.Name != "Bills" {
		t.Fatalf("updated %+v", upd)
	}

	if rec := ts.do(t, http.MethodDelete, "/expenses/"+e.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := ts.do(t, method, "/expenses/"+e.ID, nil)
		if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Expense not found" {
			t.Fatalf("%s deleted: %d %s", method, rec.Code, rec.Body.String())
		}
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	unknown := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"missing amount", map[string]any{"description": "x", "date": "2024-01-01", "categoryId": food.ID}, "All fields are required"},
		{"blank description", map[string]any{"amount": 1, "description": " ", "date": "2024-01-01", "categoryId": food.ID}, "All fields are required"},
		{"missing category", map[string]any{"amount": 1, "description": "x", "date": "2024-01-01"}, "All fields are required"},
		{"negative amount", map[string]any{"amount": -5, "description": "x", "date": "2024-01-01", "categoryId": food.ID}, "Amount must be a positive number"},
		{"zero amount", map[string]any{"amount": "0", "description": "x", "date": "2024-01-01", "categoryId": food.ID}, "Amount must be a positive number"},
		{"amount over cap", map[string]any{"amount": "46000000000000000", "description": "x", "date": "2024-01-01", "categoryId": food.ID}, "Amount is too large"},
		{"text amount", map[string]any{"amount": "abc", "description": "x", "date": "2024-01-01", "categoryId": food.ID}, "Amount must be a positive number"},
		{"bad date", map[string]any{"amount": 1, "description": "x", "date": "01/02/2024", "categoryId": food.ID}, "Invalid date"},
		{"unknown category", map[string]any{"amount": 1, "description": "x", "date": "2024-01-01", "categoryId": unknown}, "Category not found"},
		{"long description", map[string]any{"amount": 1, "description": strings.Repeat("d", 201), "date": "2024-01-01", "categoryId": food.ID}, "Description must be at most 200 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/expenses", tt.body)
			if rec.Code != http.StatusBadRequest || errorOf(t, rec) != tt.msg {
				t.Fatalf("got %d %s, want 400 %q", rec.Code, rec.Body.String(), tt.msg)
			}
		})
	}

	list := decode[[]expenseJSON](t, ts.do(t, http.MethodGet, "/expenses", nil))
	if len(list) != 0 {
		t.Fatalf("invalid requests must not store anything, got %d", len(list))
	}
}

func TestUpdateExpenseErrors(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	body := map[string]any{"amount": 1, "description": "x", "date": "2024-01-01", "categoryId": food.ID}

	rec := ts.do(t, http.MethodPut, "/expenses/00000000-0000-4000-8000-000000000000", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPut, "/expenses/not-a-uuid", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestListExpensesFilters(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	bills := ts.category(t, "Bills")
	ts.expense(t, 1, "jan", "2024-01-10", food.ID)
	ts.expense(t, 2, "feb", "2024-02-10", bills.ID)
	ts.expense(t, 3, "mar", "2024-03-10", food.ID)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"mar", "feb", "jan"}},
		{"?categoryId=" + food.ID, []string{"mar", "jan"}},
		{"?startDate=2024-02-01", []string{"mar", "feb"}},
		{"?endDate=2024-02-10", []string{"feb", "jan"}},
		{"?startDate=2024-02-01&endDate=2024-02-29", []string{"feb"}},
		{"?limit=1", []string{"mar"}},
		{"?startDate=2024-03-01&endDate=2024-01-01", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/expenses"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			list := decode[[]expenseJSON](t, rec)
			if len(list) != len(tt.want) {
				t.Fatalf("got %d expenses, want %v", len(list), tt.want)
			}
			for i, e := range list {
				if e.Description != tt.want[i] {
					t.Fatalf("order = %v, want %v", list, tt.want)
				}
			}
		})
	}

	for _, q := range []string{"?limit=0", "?limit=x", "?startDate=yesterday"} {
		if rec := ts.do(t, http.MethodGet, "/expenses"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, rec.Code)
		}
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	rent := ts.category(t, "Rent")
	ts.category(t, "Unused")
	ts.expense(t, 100, "rent", "2024-02-01", rent.ID)
	ts.expense(t, 50, "food jan", "2024-01-15", food.ID)
	ts.expense(t, 30, "food feb", "2024-02-20", food.ID)

	rec := ts.do(t, http.MethodGet, "/expenses/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	s := decode[summaryJSON](t, rec)
	if s.Total.String() != "180" {
		t.Errorf("total = %s", s.Total)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Rent" || s.ByCategory[1].Total.String() != "80" {
		t.Errorf("byCategory = %+v", s.ByCategory)
	}
	if len(s.ByMonth) != 2 || s.ByMonth[0].Month != "2024-01" || s.ByMonth[1].Total.String() != "130" {
		t.Errorf("byMonth = %+v", s.ByMonth)
	}
	if s.CurrentMonthTotal.String() != "130" || s.PreviousMonthTotal.String() != "50" || s.PercentChange.String() != "160" {
		t.Errorf("month over month = %s %s %s", s.CurrentMonthTotal, s.PreviousMonthTotal, s.PercentChange)
	}

	empty := decode[summaryJSON](t, ts.do(t, http.MethodGet, "/expenses/summary?startDate=2023-01-01&endDate=2023-12-31", nil))
	if empty.Total.String() != "0" || empty.ByCategory == nil || empty.ByMonth == nil {
		t.Errorf("empty summary = %+v", empty)
	}
	if !strings.Contains(ts.do(t, http.MethodGet, "/expenses/summary?startDate=2023-01-01&endDate=2023-12-31", nil).Body.String(), `"byCategory":[]`) {
		t.Error("empty lists must serialize as []")
	}

	if rec := ts.do(t, http.MethodGet, "/expenses/summary?startDate=bad", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status %d", rec.Code)
	}
}

func TestSummaryReflectsMutations(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	ts.expense(t, 10, "a", "2024-03-01", food.ID)
	first := decode[summaryJSON](t, ts.do(t, http.MethodGet, "/expenses/summary", nil))
	ts.expense(t, 5, "b", "2024-03-02", food.ID)
	second := decode[summaryJSON](t, ts.do(t, http.MethodGet, "/expenses/summary", nil))
	if first.Total.String() != "10" || second.Total.String() != "15" {
		t.Fatalf("totals = %s then %s", first.Total, second.Total)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPatch, "/categories", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	store := storage.NewMemoryStore()
	ledger := services.NewLedger(store, log.Discard())
	srv, err := NewServer(Config{RateLimitPerMinute: 2}, ledger, prefs.NewService(prefs.NewMemoryStore(), log.Discard()), log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Health checks are not rate limited.
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	ts.expense(t, 1, "x", "2024-01-01", food.ID)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	body := rec.Body.String()
	for _, want := range []string{"expenses_created_total 1", "# TYPE http_requests_total counter"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "expense_session" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestViewPersistsStatePerSession(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	ts.expense(t, 5, "Coffee beans", "2024-03-01", food.ID)
	ts.expense(t, 12, "Pizza", "2024-03-05", food.ID)
	ts.expense(t, 40, "Groceries", "2024-02-20", food.ID)

	rec := ts.do(t, http.MethodGet, "/expenses/view?pageSize=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view: %d %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	v := decode[viewJSON](t, rec)
	if v.FilteredCount != 3 || v.TotalPages != 2 || len(v.Items) != 2 || v.Items[0].Description != "Pizza" {
		t.Fatalf("first page = %+v", v)
	}
	if v.TotalAmount.String() != "57" {
		t.Fatalf("totalAmount = %s", v.TotalAmount)
	}

	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?page=2", nil, cookie))
	if v.CurrentPage != 2 || len(v.Items) != 1 || v.Items[0].Description != "Groceries" || v.Filters.PageSize != 2 {
		t.Fatalf("second page = %+v", v)
	}

	// A new expense moves the view back to the first page.
	ts.expense(t, 1, "Gum", "2024-03-06", food.ID)
	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?page=2", nil, cookie))
	if v.CurrentPage != 1 || v.Items[0].Description != "Gum" {
		t.Fatalf("after insert = %+v", v)
	}

	// Another session starts from defaults.
	other := decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view", nil))
	if other.Filters.PageSize == 2 {
		t.Fatal("sessions must not share state")
	}
}

func TestViewHonorsPageOnFreshSession(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	for i := 1; i <= 15; i++ {
		ts.expense(t, i, "item", "2024-03-01", food.ID)
	}

	// Without a cookie every request starts a new session.
	for i := 0; i < 2; i++ {
		v := decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?page=2&pageSize=10", nil))
		if v.CurrentPage != 2 || len(v.Items) != 5 {
			t.Fatalf("request %d: currentPage=%d items=%d, want page 2 with 5 items", i, v.CurrentPage, len(v.Items))
		}
	}
}

func TestViewFiltersAndSort(t *testing.T) {
	ts := newTestServer(t)
	food := ts.category(t, "Food")
	ts.expense(t, 5, "Coffee beans", "2024-03-01", food.ID)
	ts.expense(t, 12, "Pizza", "2024-03-05", food.ID)
	ts.expense(t, 40, "Groceries", "2024-02-20", food.ID)

	rec := ts.do(t, http.MethodGet, "/expenses/view", nil)
	cookie := sessionCookie(t, rec)

	v := decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?search=COFFEE", nil, cookie))
	if v.FilteredCount != 1 || v.Items[0].Description != "Coffee beans" {
		t.Fatalf("search = %+v", v)
	}

	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?clear=1&quick=currentMonth", nil, cookie))
	if v.FilteredCount != 2 || v.Filters.ActiveQuickFilter != "currentMonth" || v.Filters.StartDate != "2024-03-01" {
		t.Fatalf("current month = %+v", v)
	}

	// A manual date replaces the preset.
	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?startDate=2024-03-02", nil, cookie))
	if v.FilteredCount != 1 || v.Filters.ActiveQuickFilter == "currentMonth" {
		t.Fatalf("manual start = %+v", v)
	}

	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?clear=true&sort=amount", nil, cookie))
	if v.Filters.SortField != "amount" || v.Filters.SortDirection != "desc" || v.Items[0].Description != "Groceries" {
		t.Fatalf("sort amount = %+v", v.Filters)
	}
	v = decode[viewJSON](t, ts.do(t, http.MethodGet, "/expenses/view?sort=amount", nil, cookie))
	if v.Filters.SortDirection != "asc" || v.Items[0].Description != "Coffee beans" {
		t.Fatalf("toggled = %+v", v.Filters)
	}

	for _, q := range []string{"sort=price", "quick=someday", "page=0", "pageSize=101", "startDate=nope"} {
		if rec := ts.do(t, http.MethodGet, "/expenses/view?"+q, nil, cookie); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, rec.Code)
		}
	}
}

func TestFilterPreferences(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/preferences/filters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	st := decode[filterStateJSON](t, rec)
	if st.SortField != "date" || st.SortDirection != "desc" || st.Page != 1 {
		t.Fatalf("defaults = %+v", st)
	}

	rec = ts.do(t, http.MethodPut, "/preferences/filters",
		`{"searchTerm":"rent","sortField":"description","sortDirection":"asc","activeQuickFilter":"lastMonth","isFilterExpanded":true}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	st = decode[filterStateJSON](t, ts.do(t, http.MethodGet, "/preferences/filters", nil, cookie))
	want := filterStateJSON{
		SearchTerm: "rent", SortField: "description", SortDirection: "asc",
		StartDate: "2024-02-01", EndDate: "2024-02-29", ActiveQuickFilter: "lastMonth",
		IsFilterExpanded: true, Page: 1, PageSize: st.PageSize,
	}
	if st != want {
		t.Fatalf("stored = %+v, want %+v", st, want)
	}

	for _, body := range []string{`{"sortField":"price"}`, `{"pageSize":0}`, `{"startDate":"tomorrow"}`, `[]`} {
		if rec := ts.do(t, http.MethodPut, "/preferences/filters", body, cookie); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", body, rec.Code)
		}
	}

	if rec := ts.do(t, http.MethodDelete, "/preferences/filters", nil, cookie); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	st = decode[filterStateJSON](t, ts.do(t, http.MethodGet, "/preferences/filters", nil, cookie))
	if st.SearchTerm != "" || st.SortField != "date" {
		t.Fatalf("after reset = %+v", st)
	}
}
