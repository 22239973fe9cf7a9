package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expenses/internal/core"
)

// Action is the kind of change an ExpenseEvent describes.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// ExpenseSnapshot is the expense as it looked when the event was emitted.
type ExpenseSnapshot struct {
	ID           string    `json:"id"`
	AmountCents  int64     `json:"amountCents"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ExpenseEvent announces a committed expense mutation. Created and updated
// events carry the full snapshot; deleted events carry the last known one.
type ExpenseEvent struct {
	Action    Action          `json:"action"`
	ExpenseID string          `json:"expenseId"`
	Expense   ExpenseSnapshot `json:"expense"`
	Timestamp time.Time       `json:"timestamp"`
}

func SnapshotOf(e core.Expense) ExpenseSnapshot {
	return ExpenseSnapshot{
		ID:           e.ID,
		AmountCents:  e.Amount.Cents,
		Description:  e.Description,
		Date:         e.Date.UTC(),
		CategoryID:   e.CategoryID,
		CategoryName: e.Category.Name,
		UpdatedAt:    e.UpdatedAt.UTC(),
	}
}

// Expense rebuilds the domain value carried by the snapshot.
func (s ExpenseSnapshot) Expense() core.Expense {
	return core.Expense{
		ID:          s.ID,
		Amount:      core.Money{Cents: s.AmountCents},
		Description: s.Description,
		Date:        s.Date,
		CategoryID:  s.CategoryID,
		Category:    core.CategoryRef{ID: s.CategoryID, Name: s.CategoryName},
		UpdatedAt:   s.UpdatedAt,
	}
}

func NewExpenseEvent(action Action, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Action:    action,
		ExpenseID: e.ID,
		Expense:   SnapshotOf(e),
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.ExpenseID == "" {
		return nil, fmt.Errorf("missing expense id")
	}
	return &msg, nil
}
