// Package listing implements the search, date filter, sort and pagination
// pipeline behind the expense list view, together with the state machine
// that drives it between requests.
package listing

import (
	"fmt"
	"time"

	"expenses/internal/core"
)

type (
	SortField     string
	SortDirection string
	QuickFilter   string
)

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"

	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"

	QuickAll          QuickFilter = "all"
	QuickCurrentMonth QuickFilter = "currentMonth"
	QuickLastMonth    QuickFilter = "lastMonth"
	QuickLast3Months  QuickFilter = "last3Months"

	DefaultPageSize = 10
	MaxPageSize     = 100
)

// State is everything the list view remembers for a session.
type State struct {
	SearchTerm     string
	Range          core.DateRange
	SortField      SortField
	SortDirection  SortDirection
	QuickFilter    QuickFilter
	Page           int
	PageSize       int
	FilterExpanded bool
	// SeenCount is the expense count the page number was last valid for,
	// Unseen until the first observation.
	SeenCount int
}

// Unseen marks a state whose expense count was never observed.
const Unseen = -1

// DefaultState is the state of a session that never touched the filters.
func DefaultState() State {
	return State{
		SortField:     SortByDate,
		SortDirection: Desc,
		QuickFilter:   QuickAll,
		Page:          1,
		PageSize:      DefaultPageSize,
		SeenCount:     Unseen,
	}
}

func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortByDate, SortByAmount, SortByDescription:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown sort field %q", core.ErrValidation, s)
}

func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(s); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown sort direction %q", core.ErrValidation, s)
}

func ParseQuickFilter(s string) (QuickFilter, error) {
	switch f := QuickFilter(s); f {
	case QuickAll, QuickCurrentMonth, QuickLastMonth, QuickLast3Months:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown quick filter %q", core.ErrValidation, s)
}

// ApplyQuickFilter replaces the date range with the preset relative to now.
func (s *State) ApplyQuickFilter(f QuickFilter, now time.Time) error {
	if _, err := ParseQuickFilter(string(f)); err != nil {
		return err
	}
	s.QuickFilter = f
	now = now.UTC()
	switch f {
	case QuickAll:
		s.Range = core.DateRange{}
	case QuickCurrentMonth:
		s.Range = core.DateRange{Start: core.StartOfMonth(now), End: core.EndOfMonth(now)}
	case QuickLastMonth:
		prev := core.StartOfMonth(now).AddDate(0, -1, 0)
		s.Range = core.DateRange{Start: prev, End: core.EndOfMonth(prev)}
	case QuickLast3Months:
		s.Range = core.DateRange{Start: core.StartOfMonth(now).AddDate(0, -2, 0), End: core.EndOfMonth(now)}
	}
	return nil
}

// SetStart sets the start bound manually, dropping any quick filter.
func (s *State) SetStart(t time.Time) {
	s.Range.Start = t
	s.QuickFilter = QuickAll
}

// SetEnd sets the end bound manually, dropping any quick filter.
func (s *State) SetEnd(t time.Time) {
	s.Range.End = t
	s.QuickFilter = QuickAll
}

// ToggleSort flips the direction when field is already active, otherwise
// switches to field sorted descending.
func (s *State) ToggleSort(field SortField) {
	if field == s.SortField {
		if s.SortDirection == Asc {
			s.SortDirection = Desc
		} else {
			s.SortDirection = Asc
		}
		return
	}
	s.SortField = field
	s.SortDirection = Desc
}

// ObserveSize resets to the first page whenever the number of expenses
// changed since the last observation. The first observation only records n.
// It reports whether a reset happened.
func (s *State) ObserveSize(n int) bool {
	if s.SeenCount == Unseen {
		s.SeenCount = n
		return false
	}
	if n == s.SeenCount {
		return false
	}
	s.SeenCount = n
	s.Page = 1
	return true
}

// ClearFilters drops search and date filters. Sorting is kept.
func (s *State) ClearFilters() {
	s.SearchTerm = ""
	s.Range = core.DateRange{}
	s.QuickFilter = QuickAll
}

// Normalize replaces out-of-domain values with their defaults.
func (s *State) Normalize() {
	def := DefaultState()
	if _, err := ParseSortField(string(s.SortField)); err != nil {
		s.SortField = def.SortField
	}
	if _, err := ParseSortDirection(string(s.SortDirection)); err != nil {
		s.SortDirection = def.SortDirection
	}
	if _, err := ParseQuickFilter(string(s.QuickFilter)); err != nil {
		s.QuickFilter = def.QuickFilter
	}
	if s.PageSize <= 0 || s.PageSize > MaxPageSize {
		s.PageSize = def.PageSize
	}
	if s.Page < 1 {
		s.Page = def.Page
	}
	if s.SeenCount < Unseen {
		s.SeenCount = Unseen
	}
}
