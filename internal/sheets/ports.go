// Package sheets defines the spreadsheet mirror that follows expense changes.
package sheets

import (
	"context"

	"expenses/internal/core"
)

// Mirror keeps one spreadsheet row per expense, keyed by expense ID.
// Both operations are idempotent so redelivered events are harmless.
type Mirror interface {
	// Upsert writes the expense row, appending it when the ID is new.
	Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
	// Remove clears the row for id. Unknown IDs are not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "Date", "Description", "Amount", "Category", "Updated At"}

// Row renders e in Header column order.
func Row(e core.Expense) []any {
	updated := ""
	if !e.UpdatedAt.IsZero() {
		updated = e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return []any{
		e.ID,
		e.Date.UTC().Format(core.DateLayout),
		e.Description,
		e.Amount.String(),
		e.Category.Name,
		updated,
	}
}
