// Package prefs persists the list view's filter state per session. Each
// field is stored as its own JSON-encoded value so a single corrupt entry
// only resets that field.
package prefs

import (
	"context"
	"fmt"
	"sync"
)

// Field names as they appear in the persisted map.
const (
	FieldSearchTerm     = "searchTerm"
	FieldSortField      = "sortField"
	FieldSortDirection  = "sortDirection"
	FieldStartDate      = "startDate"
	FieldEndDate        = "endDate"
	FieldQuickFilter    = "activeQuickFilter"
	FieldFilterExpanded = "isFilterExpanded"
	FieldPage           = "page"
	FieldPageSize       = "pageSize"
	FieldSeenCount      = "seenCount"
)

// Store is a per-session map of field name to JSON value.
type Store interface {
	Load(ctx context.Context, session string) (map[string]string, error)
	Save(ctx context.Context, session string, values map[string]string) error
	Clear(ctx context.Context, session string) error
}

func key(session string) string {
	return fmt.Sprintf("expense-filter:%s", session)
}

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]string{}}
}

func (s *MemoryStore) Load(_ context.Context, session string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data[key(session)]))
	for k, v := range s.data[key(session)] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, session string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[key(session)]
	if !ok {
		m = make(map[string]string, len(values))
		s.data[key(session)] = m
	}
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key(session))
	return nil
}
