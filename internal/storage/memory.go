package storage

import (
	"context"
	"sort"
	"sync"

	"expenses/internal/core"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. A single mutex makes the category
// reference check and the write it guards one atomic step.
type MemoryStore struct {
	mu         sync.Mutex
	categories map[string]core.Category
	expenses   map[string]core.Expense
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: map[string]core.Category{},
		expenses:   map[string]core.Expense{},
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

func (s *MemoryStore) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) CountExpenses(_ context.Context, categoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(categoryID), nil
}

func (s *MemoryStore) countLocked(categoryID string) int {
	n := 0
	for _, e := range s.expenses {
		if e.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) CreateCategory(_ context.Context, name string) (core.Category, error) {
	ts := now()
	c := core.Category{ID: uuid.NewString(), Name: name, CreatedAt: ts, UpdatedAt: ts}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return c, nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, id, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	c.Name = name
	c.UpdatedAt = now()
	s.categories[id] = c
	return c, nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.ErrNotFound
	}
	if s.countLocked(id) > 0 {
		return core.ErrCategoryInUse
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) ListExpenses(_ context.Context, f ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, until := rangeBounds(f.Range)
	out := []core.Expense{}
	for _, e := range s.expenses {
		if f.CategoryID != "" && e.CategoryID != f.CategoryID {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !until.IsZero() && !e.Date.Before(until) {
			continue
		}
		out = append(out, s.withCategoryLocked(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return s.withCategoryLocked(e), nil
}

func (s *MemoryStore) CreateExpense(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[in.CategoryID]; !ok {
		return core.Expense{}, core.ErrInvalidCategory
	}
	ts := now()
	e := core.Expense{
		ID:          uuid.NewString(),
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date.Truncate(timeResolution),
		CategoryID:  in.CategoryID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	s.expenses[e.ID] = e
	return s.withCategoryLocked(e), nil
}

func (s *MemoryStore) UpdateExpense(_ context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	if _, ok := s.categories[in.CategoryID]; !ok {
		return core.Expense{}, core.ErrInvalidCategory
	}
	e.Amount = in.Amount
	e.Description = in.Description
	e.Date = in.Date.Truncate(timeResolution)
	e.CategoryID = in.CategoryID
	e.UpdatedAt = now()
	s.expenses[id] = e
	return s.withCategoryLocked(e), nil
}

func (s *MemoryStore) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *MemoryStore) withCategoryLocked(e core.Expense) core.Expense {
	e.Category = core.CategoryRef{ID: e.CategoryID}
	if c, ok := s.categories[e.CategoryID]; ok {
		e.Category.Name = c.Name
	}
	return e
}
