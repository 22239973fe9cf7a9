// Package memory is an in-process sheets.Mirror used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expenses/internal/core"
	"expenses/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[string][]any
	refs map[string]int
	next int
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string][]any{}, refs: map[string]int{}, next: 2}
}

// Upsert stores the rendered row and returns a synthetic row reference.
func (m *Mirror) Upsert(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", fmt.Errorf("%w: missing expense id", core.ErrInvalidID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.refs[e.ID]
	if !ok {
		n = m.next
		m.next++
		m.refs[e.ID] = n
	}
	m.rows[e.ID] = sheets.Row(e)
	return fmt.Sprintf("mem:%d", n), nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Row returns the stored row for id.
func (m *Mirror) Row(id string) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return append([]any(nil), r...), ok
}

func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
