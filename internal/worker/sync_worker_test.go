package worker

import (
	"context"
	"errors"
	"testing"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/sheets/memory"
	"expenses/internal/storage"
)

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, core.Expense) (string, error) {
	return "", errors.New("quota exceeded")
}
func (failingMirror) Remove(context.Context, string) error { return errors.New("quota exceeded") }

func seed(t *testing.T) (*storage.MemoryStore, core.Expense) {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemoryStore()
	cat, _ := s.CreateCategory(ctx, "Food")
	e, err := s.CreateExpense(ctx, core.ExpenseInput{
		Amount:      core.Money{Cents: 450},
		Description: "Pizza",
		Date:        core.NewDate(2024, 4, 1),
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s, e
}

func TestHandleEvent_UsesSnapshotWithoutStore(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil, 0)
	e := core.Expense{ID: "e1", Amount: core.Money{Cents: 100}, Description: "Bus", Date: core.NewDate(2024, 1, 1)}

	if err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.ActionCreated, e)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	row, ok := mirror.Row("e1")
	if !ok || row[2] != "Bus" {
		t.Fatalf("row = %v", row)
	}

	if err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.ActionDeleted, e)); err != nil {
		t.Fatalf("HandleEvent delete: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatal("row should be removed")
	}
}

func TestHandleEvent_PrefersStoredState(t *testing.T) {
	ctx := context.Background()
	store, e := seed(t)
	mirror := memory.New()
	w := NewSyncWorker(mirror, store, 0)

	stale := e
	stale.Description = "stale"
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ActionUpdated, stale)); err != nil {
		t.Fatal(err)
	}
	row, _ := mirror.Row(e.ID)
	if row[2] != "Pizza" {
		t.Fatalf("expected stored description, got %v", row)
	}

	// A created event arriving after the delete removes the row.
	if err := store.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ActionCreated, e)); err != nil {
		t.Fatal(err)
	}
	if _, ok := mirror.Row(e.ID); ok {
		t.Fatal("row for a deleted expense should not be mirrored")
	}
}

func TestHandleEvent_PropagatesMirrorErrors(t *testing.T) {
	w := NewSyncWorker(failingMirror{}, nil, 0)
	ev := amqp.NewExpenseEvent(amqp.ActionCreated, core.Expense{ID: "e1"})
	if err := w.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	ev.Action = "bogus"
	if err := w.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	store, e := seed(t)
	mirror := memory.New()

	if err := NewSyncWorker(mirror, store, 10).StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := mirror.Row(e.ID); !ok {
		t.Fatal("startup sync should mirror stored expenses")
	}

	if err := NewSyncWorker(failingMirror{}, store, 10).StartupSyncCheck(ctx); err != nil {
		t.Fatalf("per-row failures are logged, not returned: %v", err)
	}
	if err := NewSyncWorker(mirror, nil, 10).StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
}
