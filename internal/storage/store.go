// Package storage persists categories and expenses. Every backend implements
// Store; the referential rule between the two entities (an expense always
// points at an existing category, a referenced category cannot be deleted)
// is enforced by the backend itself in a single operation.
package storage

import (
	"context"
	"time"

	"expenses/internal/core"
)

// ExpenseFilter narrows ListExpenses. Zero values mean "no constraint".
type ExpenseFilter struct {
	CategoryID string
	Range      core.DateRange
	Limit      int
}

// Store is the persistence port used by the services.
//
// Errors: lookups of unknown IDs return core.ErrNotFound; creating or
// updating an expense with an unknown category returns core.ErrInvalidCategory;
// deleting a category that still has expenses returns core.ErrCategoryInUse.
// Anything else is a backend failure.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	CountExpenses(ctx context.Context, categoryID string) (int, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, id, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// ListExpenses returns expenses ordered by date, newest first.
	ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// timeLayout is the fixed-width UTC text form used where the backend has no
// native timestamp type. Fixed width keeps lexical and chronological order
// identical.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// rangeBounds converts an inclusive date range into a half-open
// [from, until) interval. Zero values are open bounds.
func rangeBounds(r core.DateRange) (from, until time.Time) {
	if r.HasStart() {
		from = r.Start.UTC()
	}
	if r.HasEnd() {
		until = core.StartOfDay(r.End).AddDate(0, 0, 1)
	}
	return from, until
}

// timeResolution is the precision every backend can store.
const timeResolution = time.Millisecond

// now is the clock used for created/updated timestamps.
func now() time.Time {
	return time.Now().UTC().Truncate(timeResolution)
}
