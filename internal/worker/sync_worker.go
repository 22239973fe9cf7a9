package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/sheets"
	"expenses/internal/storage"
)

// SyncWorker mirrors expense events into a spreadsheet.
type SyncWorker struct {
	mirror    sheets.Mirror
	store     storage.Store
	batchSize int
}

// NewSyncWorker creates a worker. store is optional: when set, the worker
// writes the expense's current stored state instead of the event snapshot,
// which makes out-of-order deliveries converge.
func NewSyncWorker(mirror sheets.Mirror, store storage.Store, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncWorker{mirror: mirror, store: store, batchSize: batchSize}
}

// HandleEvent processes one expense event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"component", "worker",
		"action", ev.Action,
		"expense_id", ev.ExpenseID)

	switch ev.Action {
	case amqp.ActionDeleted:
		return w.remove(ctx, ev.ExpenseID)
	case amqp.ActionCreated, amqp.ActionUpdated:
		e, err := w.current(ctx, ev)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted after the event was published.
			return w.remove(ctx, ev.ExpenseID)
		}
		if err != nil {
			return err
		}
		return w.upsert(ctx, e)
	default:
		return fmt.Errorf("unknown action %q", ev.Action)
	}
}

func (w *SyncWorker) current(ctx context.Context, ev *amqp.ExpenseEvent) (core.Expense, error) {
	if w.store == nil {
		return ev.Expense.Expense(), nil
	}
	e, err := w.store.GetExpense(ctx, ev.ExpenseID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, fmt.Errorf("get expense from storage: %w", err)
	}
	return e, err
}

func (w *SyncWorker) upsert(ctx context.Context, e core.Expense) error {
	ref, err := w.mirror.Upsert(ctx, e)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}
	slog.InfoContext(ctx, "Successfully synced expense",
		"component", "worker",
		"expense_id", e.ID,
		"sheets_ref", ref,
		"amount_cents", e.Amount.Cents)
	return nil
}

func (w *SyncWorker) remove(ctx context.Context, id string) error {
	if err := w.mirror.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove from sheets: %w", err)
	}
	slog.InfoContext(ctx, "Successfully removed expense from sheet", "component", "worker", "expense_id", id)
	return nil
}

// StartupSyncCheck re-mirrors the most recent expenses at startup to recover
// from events missed while the worker was down. It needs a store.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.store == nil {
		slog.InfoContext(ctx, "No store configured, skipping startup sync", "component", "worker")
		return nil
	}
	expenses, err := w.store.ListExpenses(ctx, storage.ExpenseFilter{Limit: w.batchSize})
	if err != nil {
		return fmt.Errorf("list expenses for startup check: %w", err)
	}

	synced, failed := 0, 0
	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.upsert(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense during startup",
				"component", "worker",
				"expense_id", e.ID,
				"error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"component", "worker",
		"total", len(expenses),
		"synced", synced,
		"errors", failed)
	return nil
}
