package listing

import (
	"sort"
	"strings"

	"expenses/internal/core"
)

// Result is one page of the filtered and sorted list.
type Result struct {
	Items         []core.Expense
	FilteredCount int
	// TotalAmount covers the whole filtered set, not just the page.
	TotalAmount core.Money
	TotalPages  int
	CurrentPage int
}

// Run filters, sorts and paginates expenses according to st. The input slice
// is not modified.
func Run(expenses []core.Expense, st State) Result {
	filtered := Filter(expenses, st.Range, st.SearchTerm)
	Sort(filtered, st.SortField, st.SortDirection)

	var total core.Money
	for _, e := range filtered {
		total = total.Add(e.Amount)
	}

	size := st.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	res := Result{
		Items:         []core.Expense{},
		FilteredCount: len(filtered),
		TotalAmount:   total,
		TotalPages:    (len(filtered) + size - 1) / size,
		CurrentPage:   st.Page,
	}
	if st.Page < 1 {
		return res
	}
	from := (st.Page - 1) * size
	if from >= len(filtered) {
		return res
	}
	to := min(from+size, len(filtered))
	res.Items = filtered[from:to]
	return res
}

// Filter keeps expenses inside r whose description or category name contains
// term, case-insensitively. It always returns a fresh slice.
func Filter(expenses []core.Expense, r core.DateRange, term string) []core.Expense {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !r.Contains(e.Date) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(e.Description), term) &&
			!strings.Contains(strings.ToLower(e.Category.Name), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Sort orders expenses in place. Equal keys keep their relative order.
func Sort(expenses []core.Expense, field SortField, dir SortDirection) {
	less := func(a, b core.Expense) bool {
		switch field {
		case SortByAmount:
			return a.Amount.Cents < b.Amount.Cents
		case SortByDescription:
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		default:
			return a.Date.Before(b.Date)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		if dir == Asc {
			return less(expenses[i], expenses[j])
		}
		return less(expenses[j], expenses[i])
	})
}
