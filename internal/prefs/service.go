package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expenses/internal/core"
	"expenses/internal/listing"
	"expenses/internal/log"
)

// Service maps listing.State to and from the persisted per-field values.
type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{store: store, logger: logger.WithComponent(log.ComponentPrefs)}
}

// Load returns the session's state. Missing fields take their default and
// corrupt fields are logged and reset to their default.
func (s *Service) Load(ctx context.Context, session string) (listing.State, error) {
	values, err := s.store.Load(ctx, session)
	if err != nil {
		return listing.DefaultState(), err
	}
	st, corrupt := Decode(values)
	for _, field := range corrupt {
		s.logger.WarnContext(ctx, "Discarding corrupt filter preference",
			log.FieldSessionID, session,
			log.FieldPrefField, field,
			"value", values[field])
	}
	return st, nil
}

// Save persists every field of st.
func (s *Service) Save(ctx context.Context, session string, st listing.State) error {
	values, err := Encode(st)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, session, values)
}

// Reset forgets everything stored for the session.
func (s *Service) Reset(ctx context.Context, session string) error {
	return s.store.Clear(ctx, session)
}

// Encode renders st as one JSON value per field.
func Encode(st listing.State) (map[string]string, error) {
	raw := map[string]any{
		FieldSearchTerm:     st.SearchTerm,
		FieldSortField:      string(st.SortField),
		FieldSortDirection:  string(st.SortDirection),
		FieldStartDate:      formatDate(st.Range.Start),
		FieldEndDate:        formatDate(st.Range.End),
		FieldQuickFilter:    string(st.QuickFilter),
		FieldFilterExpanded: st.FilterExpanded,
		FieldPage:           st.Page,
		FieldPageSize:       st.PageSize,
		FieldSeenCount:      st.SeenCount,
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

// Decode rebuilds a state from stored values and reports the fields whose
// value could not be used.
func Decode(values map[string]string) (listing.State, []string) {
	st := listing.DefaultState()
	var corrupt []string

	str := func(field string, apply func(string) error) {
		raw, ok := values[field]
		if !ok {
			return
		}
		var v string
		if err := json.Unmarshal([]byte(raw), &v); err != nil || apply(v) != nil {
			corrupt = append(corrupt, field)
		}
	}
	num := func(field string, apply func(int) error) {
		raw, ok := values[field]
		if !ok {
			return
		}
		var v int
		if err := json.Unmarshal([]byte(raw), &v); err != nil || apply(v) != nil {
			corrupt = append(corrupt, field)
		}
	}

	str(FieldSearchTerm, func(v string) error { st.SearchTerm = v; return nil })
	str(FieldSortField, func(v string) error {
		f, err := listing.ParseSortField(v)
		if err == nil {
			st.SortField = f
		}
		return err
	})
	str(FieldSortDirection, func(v string) error {
		d, err := listing.ParseSortDirection(v)
		if err == nil {
			st.SortDirection = d
		}
		return err
	})
	str(FieldStartDate, func(v string) error {
		t, err := core.ParseDate(v)
		if err == nil {
			st.Range.Start = t
		}
		return err
	})
	str(FieldEndDate, func(v string) error {
		t, err := core.ParseDate(v)
		if err == nil {
			st.Range.End = t
		}
		return err
	})
	str(FieldQuickFilter, func(v string) error {
		q, err := listing.ParseQuickFilter(v)
		if err == nil {
			st.QuickFilter = q
		}
		return err
	})
	if raw, ok := values[FieldFilterExpanded]; ok {
		if err := json.Unmarshal([]byte(raw), &st.FilterExpanded); err != nil {
			st.FilterExpanded = false
			corrupt = append(corrupt, FieldFilterExpanded)
		}
	}
	num(FieldPage, func(v int) error {
		if v < 1 {
			return core.ErrValidation
		}
		st.Page = v
		return nil
	})
	num(FieldPageSize, func(v int) error {
		if v < 1 || v > listing.MaxPageSize {
			return core.ErrValidation
		}
		st.PageSize = v
		return nil
	})
	num(FieldSeenCount, func(v int) error {
		if v < listing.Unseen {
			return core.ErrValidation
		}
		st.SeenCount = v
		return nil
	})
	return st, corrupt
}

// formatDate keeps calendar dates in YYYY-MM-DD form and anything with a
// time component as RFC 3339.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Equal(core.StartOfDay(t)) {
		return t.Format(core.DateLayout)
	}
	return t.Format(time.RFC3339Nano)
}
