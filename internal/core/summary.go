package core

import "github.com/shopspring/decimal"

// CategorySummary is the total spent in one category.
type CategorySummary struct {
	ID    string
	Name  string
	Total Money
}

// MonthSummary is the total spent in one calendar month, keyed "YYYY-MM".
type MonthSummary struct {
	Month string
	Total Money
}

// Summary is the derived report over a filtered expense set. It is never persisted.
type Summary struct {
	Total              Money
	ByCategory         []CategorySummary
	ByMonth            []MonthSummary
	CurrentMonthTotal  Money
	PreviousMonthTotal Money
	PercentChange      decimal.Decimal
}
