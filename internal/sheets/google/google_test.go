package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"expenses/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu    sync.Mutex
	rows  [][]string
	gets  int
	calls []string
}

var rowRangeRE = regexp.MustCompile(`^[^!]+!A(\d+):[A-Z](\d+)$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	isClear := strings.HasSuffix(rng, ":clear")
	rng = strings.TrimSuffix(rng, ":clear")
	f.calls = append(f.calls, r.Method+" "+rng)

	switch {
	case r.Method == http.MethodGet:
		f.gets++
		values := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			if len(row) == 0 {
				values = append(values, []any{})
				continue
			}
			values = append(values, []any{row[0]})
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})

	case r.Method == http.MethodPut:
		n := f.rowNumber(rng)
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil || len(vr.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		for len(f.rows) < n {
			f.rows = append(f.rows, nil)
		}
		row := make([]string, len(vr.Values[0]))
		for i, v := range vr.Values[0] {
			row[i], _ = v.(string)
		}
		f.rows[n-1] = row
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})

	case r.Method == http.MethodPost && isClear:
		n := f.rowNumber(rng)
		if n <= len(f.rows) {
			f.rows[n-1] = nil
		}
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheet) rowNumber(rng string) int {
	m := rowRangeRE.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func newTestClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c, err := NewWithService(svc, Options{SpreadsheetID: "sheet-1", SheetName: "Expenses"})
	if err != nil {
		t.Fatalf("NewWithService: %v", err)
	}
	return c
}

func expense(id, desc string, cents int64) core.Expense {
	return core.Expense{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Date:        core.NewDate(2024, 3, 5),
		CategoryID:  "c1",
		Category:    core.CategoryRef{ID: "c1", Name: "Food"},
	}
}

func TestClient_UpsertAndRemove(t *testing.T) {
	fake := &fakeSheet{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, expense("e1", "Lunch", 1250))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if ref != "Expenses!A2:F2" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.Upsert(ctx, expense("e2", "Dinner", 3000)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if len(fake.rows) != 3 || fake.rows[0][0] != "ID" {
		t.Fatalf("expected header plus two rows, got %v", fake.rows)
	}
	if got := fake.rows[1]; got[0] != "e1" || got[1] != "2024-03-05" || got[2] != "Lunch" || got[3] != "12.50" || got[4] != "Food" {
		t.Errorf("row 2 = %v", got)
	}

	// Updating rewrites the same row.
	ref, err = c.Upsert(ctx, expense("e1", "Brunch", 1400))
	if err != nil || ref != "Expenses!A2:F2" {
		t.Fatalf("update ref=%q err=%v", ref, err)
	}
	if fake.rows[1][2] != "Brunch" || fake.rows[1][3] != "14.00" || len(fake.rows) != 3 {
		t.Errorf("rows after update = %v", fake.rows)
	}

	if err := c.Remove(ctx, "e1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if fake.rows[1] != nil {
		t.Errorf("row 2 should be cleared, got %v", fake.rows[1])
	}
	if err := c.Remove(ctx, "e1"); err != nil {
		t.Errorf("removing twice should be a no-op, got %v", err)
	}
	if fake.gets != 1 {
		t.Errorf("expected the ID column to be read once while cached, got %d reads", fake.gets)
	}
}

func TestClient_FindsExistingRowsAfterRestart(t *testing.T) {
	fake := &fakeSheet{rows: [][]string{
		{"ID", "Date"},
		{"e1", "2024-01-01"},
		nil,
		{"e9", "2024-01-03"},
	}}
	c := newTestClient(t, fake)

	ref, err := c.Upsert(context.Background(), expense("e9", "Taxi", 900))
	if err != nil || ref != "Expenses!A4:F4" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
	ref, err = c.Upsert(context.Background(), expense("e10", "Bus", 200))
	if err != nil || ref != "Expenses!A5:F5" {
		t.Fatalf("new rows append after the last used row, ref=%q err=%v", ref, err)
	}
}

func TestRowCacheExpiration(t *testing.T) {
	fake := &fakeSheet{}
	c := newTestClient(t, fake)
	c.cacheValidDuration = 50 * time.Millisecond
	ctx := context.Background()

	if _, _, err := c.lookupRow(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.lookupRow(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if fake.gets != 1 {
		t.Fatalf("second lookup should hit the cache, reads=%d", fake.gets)
	}

	time.Sleep(80 * time.Millisecond)
	c.lookupRow(ctx, "x")
	if fake.gets != 2 {
		t.Fatalf("expired cache should re-read, reads=%d", fake.gets)
	}

	c.InvalidateRowCache()
	c.lookupRow(ctx, "x")
	if fake.gets != 3 {
		t.Fatalf("invalidated cache should re-read, reads=%d", fake.gets)
	}
}

func TestIndexRows(t *testing.T) {
	index, count := indexRows([][]any{{"ID"}, {"a"}, {}, {" b "}, {""}})
	if count != 5 {
		t.Errorf("count = %d", count)
	}
	if index["a"] != 2 || index["b"] != 4 || len(index) != 2 {
		t.Errorf("index = %v", index)
	}
	if _, ok := index["ID"]; ok {
		t.Error("header must not be indexed")
	}
}

func TestRowRange(t *testing.T) {
	if got := rowRange("Expenses", 7); got != "Expenses!A7:F7" {
		t.Errorf("rowRange = %q", got)
	}
}

func TestNewWithService_RequiresIdentifiers(t *testing.T) {
	if _, err := NewWithService(nil, Options{SheetName: "x"}); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := NewWithService(nil, Options{SpreadsheetID: "x"}); err == nil {
		t.Error("expected error for missing sheet name")
	}
}

func TestResolveCredentials(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if b, err := resolveCredentials(ctx, `{"type":"service_account"}`, "/nope"); err != nil || !strings.Contains(string(b), "service_account") {
		t.Errorf("inline JSON should win: %s %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	os.WriteFile(path, []byte(`{"from":"file"}`), 0o600)
	if b, err := resolveCredentials(ctx, "", path); err != nil || string(b) != `{"from":"file"}` {
		t.Errorf("file credentials: %s %v", b, err)
	}

	if _, err := resolveCredentials(ctx, "", ""); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if b, err := resolveCredentials(ctx, "", ""); err != nil || string(b) != `{"from":"file"}` {
		t.Errorf("ADC fallback: %s %v", b, err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "y"}
	if _, err := c.Upsert(context.Background(), expense("e1", "x", 1)); err == nil {
		t.Error("expected error without a service")
	}
	if err := c.Remove(context.Background(), "e1"); err == nil {
		t.Error("expected error without a service")
	}
}
