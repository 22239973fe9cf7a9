package http

import (
	"encoding/json"
	"time"

	"expenses/internal/core"
	"expenses/internal/listing"
	"expenses/internal/services"
)

// Wire shapes. camelCase field names and UTC instants are the contract with
// clients; amounts are JSON numbers in currency units.

type categoryJSON struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ExpenseCount *int      `json:"expenseCount,omitempty"`
}

type categoryRefJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type expenseJSON struct {
	ID          string          `json:"id"`
	Amount      json.Number     `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CategoryID  string          `json:"categoryId"`
	Category    categoryRefJSON `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type categoryTotalJSON struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Total json.Number `json:"total"`
}

type monthTotalJSON struct {
	Month string      `json:"month"`
	Total json.Number `json:"total"`
}

type summaryJSON struct {
	Total              json.Number         `json:"total"`
	ByCategory         []categoryTotalJSON `json:"byCategory"`
	ByMonth            []monthTotalJSON    `json:"byMonth"`
	CurrentMonthTotal  json.Number         `json:"currentMonthTotal"`
	PreviousMonthTotal json.Number         `json:"previousMonthTotal"`
	PercentChange      json.Number         `json:"percentChange"`
}

type filterStateJSON struct {
	SearchTerm        string `json:"searchTerm"`
	SortField         string `json:"sortField"`
	SortDirection     string `json:"sortDirection"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	ActiveQuickFilter string `json:"activeQuickFilter"`
	IsFilterExpanded  bool   `json:"isFilterExpanded"`
	Page              int    `json:"page"`
	PageSize          int    `json:"pageSize"`
}

// filterStateRequest is the body of PUT /preferences/filters. Absent fields
// keep their stored value.
type filterStateRequest struct {
	SearchTerm        *string `json:"searchTerm"`
	SortField         *string `json:"sortField"`
	SortDirection     *string `json:"sortDirection"`
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	ActiveQuickFilter *string `json:"activeQuickFilter"`
	IsFilterExpanded  *bool   `json:"isFilterExpanded"`
	Page              *int    `json:"page"`
	PageSize          *int    `json:"pageSize"`
}

type viewJSON struct {
	Items         []expenseJSON   `json:"items"`
	FilteredCount int             `json:"filteredCount"`
	TotalAmount   json.Number     `json:"totalAmount"`
	TotalPages    int             `json:"totalPages"`
	CurrentPage   int             `json:"currentPage"`
	Filters       filterStateJSON `json:"filters"`
}

func amountJSON(m core.Money) json.Number {
	return json.Number(m.Decimal().String())
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC()}
}

func toCategoryDetailJSON(d services.CategoryDetail) categoryJSON {
	out := toCategoryJSON(d.Category)
	n := d.ExpenseCount
	out.ExpenseCount = &n
	return out
}

func toCategoriesJSON(cs []core.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCategoryJSON(c))
	}
	return out
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Amount:      amountJSON(e.Amount),
		Description: e.Description,
		Date:        e.Date.UTC(),
		CategoryID:  e.CategoryID,
		Category:    categoryRefJSON{ID: e.Category.ID, Name: e.Category.Name},
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func toExpensesJSON(es []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(es))
	for _, e := range es {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

func toSummaryJSON(s core.Summary) summaryJSON {
	out := summaryJSON{
		Total:              amountJSON(s.Total),
		ByCategory:         make([]categoryTotalJSON, 0, len(s.ByCategory)),
		ByMonth:            make([]monthTotalJSON, 0, len(s.ByMonth)),
		CurrentMonthTotal:  amountJSON(s.CurrentMonthTotal),
		PreviousMonthTotal: amountJSON(s.PreviousMonthTotal),
		PercentChange:      json.Number(s.PercentChange.String()),
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalJSON{ID: c.ID, Name: c.Name, Total: amountJSON(c.Total)})
	}
	for _, m := range s.ByMonth {
		out.ByMonth = append(out.ByMonth, monthTotalJSON{Month: m.Month, Total: amountJSON(m.Total)})
	}
	return out
}

func formatQueryDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(core.DateLayout)
}

func toFilterStateJSON(st listing.State) filterStateJSON {
	return filterStateJSON{
		SearchTerm:        st.SearchTerm,
		SortField:         string(st.SortField),
		SortDirection:     string(st.SortDirection),
		StartDate:         formatQueryDate(st.Range.Start),
		EndDate:           formatQueryDate(st.Range.End),
		ActiveQuickFilter: string(st.QuickFilter),
		IsFilterExpanded:  st.FilterExpanded,
		Page:              st.Page,
		PageSize:          st.PageSize,
	}
}

// apply merges the request into st. Quick filters are applied before manual
// dates so an explicit date wins and resets the preset.
func (req filterStateRequest) apply(st *listing.State, now time.Time) error {
	if req.SearchTerm != nil {
		st.SearchTerm = sanitizeInput(*req.SearchTerm)
	}
	if req.SortField != nil {
		f, err := listing.ParseSortField(*req.SortField)
		if err != nil {
			return err
		}
		st.SortField = f
	}
	if req.SortDirection != nil {
		d, err := listing.ParseSortDirection(*req.SortDirection)
		if err != nil {
			return err
		}
		st.SortDirection = d
	}
	if req.ActiveQuickFilter != nil {
		f, err := listing.ParseQuickFilter(*req.ActiveQuickFilter)
		if err != nil {
			return err
		}
		if err := st.ApplyQuickFilter(f, now); err != nil {
			return err
		}
	}
	if req.StartDate != nil {
		t, err := core.ParseDate(*req.StartDate)
		if err != nil {
			return err
		}
		st.SetStart(t)
	}
	if req.EndDate != nil {
		t, err := core.ParseDate(*req.EndDate)
		if err != nil {
			return err
		}
		st.SetEnd(t)
	}
	if req.IsFilterExpanded != nil {
		st.FilterExpanded = *req.IsFilterExpanded
	}
	if req.PageSize != nil {
		if *req.PageSize < 1 || *req.PageSize > listing.MaxPageSize {
			return errInvalidPageSize
		}
		st.PageSize = *req.PageSize
	}
	if req.Page != nil {
		if *req.Page < 1 {
			return errInvalidPage
		}
		st.Page = *req.Page
	}
	return nil
}
