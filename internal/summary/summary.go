// Package summary reduces expense rows into the derived report served by
// GET /expenses/summary: a grand total, totals per category and totals per
// calendar month.
package summary

import (
	"sort"
	"strings"
	"time"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
)

// TrailingMonths bounds the monthly breakdown when the range has no start.
const TrailingMonths = 6

// Options control which expenses contribute to a summary.
type Options struct {
	Range core.DateRange
	// Now anchors the trailing monthly window. Zero means time.Now().
	Now time.Time
}

// Aggregate computes the summary of expenses within opts.Range.
//
// Per-category totals only list categories present in categories with a
// positive total; expenses pointing at unknown categories still count towards
// the grand total. Month totals are sorted ascending by "YYYY-MM".
func Aggregate(expenses []core.Expense, categories []core.Category, opts Options) core.Summary {
	out := core.Summary{
		ByCategory:    []core.CategorySummary{},
		ByMonth:       []core.MonthSummary{},
		PercentChange: decimal.Zero,
	}
	if opts.Range.Inverted() {
		return out
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	var windowStart time.Time
	if !opts.Range.HasStart() {
		windowStart = now.UTC().AddDate(0, -TrailingMonths, 0)
	}

	byCat := map[string]core.Money{}
	byMonth := map[string]core.Money{}
	var total core.Money
	for _, e := range expenses {
		if !opts.Range.Contains(e.Date) {
			continue
		}
		total = total.Add(e.Amount)
		byCat[e.CategoryID] = byCat[e.CategoryID].Add(e.Amount)
		if !windowStart.IsZero() && e.Date.Before(windowStart) {
			continue
		}
		month := core.MonthKey(e.Date)
		byMonth[month] = byMonth[month].Add(e.Amount)
	}
	out.Total = total

	for _, c := range categories {
		if t := byCat[c.ID]; t.Cents > 0 {
			out.ByCategory = append(out.ByCategory, core.CategorySummary{ID: c.ID, Name: c.Name, Total: t})
		}
	}
	sort.SliceStable(out.ByCategory, func(i, j int) bool {
		a, b := out.ByCategory[i], out.ByCategory[j]
		if a.Total.Cents != b.Total.Cents {
			return a.Total.Cents > b.Total.Cents
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	for month, t := range byMonth {
		out.ByMonth = append(out.ByMonth, core.MonthSummary{Month: month, Total: t})
	}
	sort.Slice(out.ByMonth, func(i, j int) bool { return out.ByMonth[i].Month < out.ByMonth[j].Month })

	if n := len(out.ByMonth); n > 0 {
		out.CurrentMonthTotal = out.ByMonth[n-1].Total
		if n > 1 {
			out.PreviousMonthTotal = out.ByMonth[n-2].Total
		}
	}
	out.PercentChange = PercentChange(out.CurrentMonthTotal, out.PreviousMonthTotal)
	return out
}

// PercentChange returns the relative change from previous to current in
// percent, rounded to one decimal place. A zero baseline yields 100 when
// current is positive and 0 otherwise.
func PercentChange(current, previous core.Money) decimal.Decimal {
	if previous.Cents == 0 {
		if current.Cents > 0 {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	cur := decimal.NewFromInt(current.Cents)
	prev := decimal.NewFromInt(previous.Cents)
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1)
}
