package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"expenses/internal/core"
	"expenses/internal/listing"
)

func strptr(s string) *string { return &s }

func TestRawAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`12.5`, "12.5"},
		{`"12,50"`, "12,50"},
		{`" 3 "`, "3"},
		{`null`, ""},
		{``, ""},
		{`true`, ""},
		{`{"v":1}`, ""},
	}
	for _, tt := range tests {
		if got := rawAmount(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("rawAmount(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExpenseRequestToInput(t *testing.T) {
	req := expenseRequest{
		Amount:      json.RawMessage(`"7,25"`),
		Description: strptr("  Taxi  "),
		Date:        strptr("2024-05-02"),
		CategoryID:  strptr(" c1 "),
	}
	in, err := req.toInput()
	if err != nil {
		t.Fatal(err)
	}
	if in.Amount.Cents != 725 || in.Description != "Taxi" || in.CategoryID != "c1" || !in.Date.Equal(core.NewDate(2024, 5, 2)) {
		t.Fatalf("input = %+v", in)
	}

	req.Date = nil
	if _, err := req.toInput(); !errors.Is(err, errMissingFields) || !errors.Is(err, core.ErrValidation) {
		t.Fatalf("missing date: %v", err)
	}
}

func TestParseExpenseFilter(t *testing.T) {
	f, err := parseExpenseFilter(url.Values{"categoryId": {"c1"}, "limit": {"5"}, "startDate": {"2024-01-01"}})
	if err != nil {
		t.Fatal(err)
	}
	if f.CategoryID != "c1" || f.Limit != 5 || !f.Range.Start.Equal(core.NewDate(2024, 1, 1)) || f.Range.HasEnd() {
		t.Fatalf("filter = %+v", f)
	}
	if _, err := parseExpenseFilter(url.Values{"limit": {"-1"}}); !errors.Is(err, errInvalidLimit) {
		t.Fatalf("negative limit: %v", err)
	}
}

func TestApplyViewQueryPageSizeResetsPage(t *testing.T) {
	st := listing.DefaultState()
	st.Page = 3
	if err := applyViewQuery(&st, url.Values{"pageSize": {"25"}}, testNow); err != nil {
		t.Fatal(err)
	}
	if st.Page != 1 || st.PageSize != 25 {
		t.Fatalf("state = %+v", st)
	}

	st.Page = 3
	if err := applyViewQuery(&st, url.Values{"pageSize": {"25"}}, testNow); err != nil {
		t.Fatal(err)
	}
	if st.Page != 3 {
		t.Fatalf("unchanged page size must keep the page, got %d", st.Page)
	}
}

func TestApplyViewQuerySortDirection(t *testing.T) {
	st := listing.DefaultState()
	if err := applyViewQuery(&st, url.Values{"sort": {"description"}, "direction": {"asc"}}, testNow); err != nil {
		t.Fatal(err)
	}
	if st.SortField != listing.SortByDescription || st.SortDirection != listing.Asc {
		t.Fatalf("state = %+v", st)
	}
	if err := applyViewQuery(&st, url.Values{"sort": {"date"}, "direction": {"sideways"}}, testNow); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("bad direction: %v", err)
	}
}
