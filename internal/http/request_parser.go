// This file implements the parsing and validation of request bodies and
// query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/listing"
	"expenses/internal/storage"

	"github.com/google/uuid"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return errInvalidBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// categoryRequest is the body of POST and PUT /categories.
type categoryRequest struct {
	Name *string `json:"name"`
}

// expenseRequest is the body of POST and PUT /expenses. Amount accepts a
// JSON number or a numeric string.
type expenseRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description *string         `json:"description"`
	Date        *string         `json:"date"`
	CategoryID  *string         `json:"categoryId"`
}

// errMissingFields is reported when any expense field is absent or blank.
var errMissingFields = fmt.Errorf("%w: all fields are required", core.ErrValidation)

// toInput converts the request into a core.ExpenseInput. Missing fields are
// reported before malformed ones.
func (req expenseRequest) toInput() (core.ExpenseInput, error) {
	amount := rawAmount(req.Amount)
	if amount == "" || blank(req.Description) || blank(req.Date) || blank(req.CategoryID) {
		return core.ExpenseInput{}, errMissingFields
	}
	money, err := core.NewMoney(amount)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	date, err := core.ParseDate(*req.Date)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Amount:      money,
		Description: sanitizeInput(*req.Description),
		Date:        date,
		CategoryID:  strings.TrimSpace(*req.CategoryID),
	}, nil
}

// rawAmount unwraps a JSON number or string. null and other types yield "".
func rawAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// validID reports whether id is a well-formed UUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// parseDateRange reads startDate and endDate from the query.
func parseDateRange(q url.Values) (core.DateRange, error) {
	start, err := core.ParseDate(q.Get("startDate"))
	if err != nil {
		return core.DateRange{}, err
	}
	end, err := core.ParseDate(q.Get("endDate"))
	if err != nil {
		return core.DateRange{}, err
	}
	return core.DateRange{Start: start, End: end}, nil
}

var errInvalidLimit = fmt.Errorf("%w: limit must be a positive integer", core.ErrValidation)

// parseExpenseFilter reads the GET /expenses query.
func parseExpenseFilter(q url.Values) (storage.ExpenseFilter, error) {
	r, err := parseDateRange(q)
	if err != nil {
		return storage.ExpenseFilter{}, err
	}
	f := storage.ExpenseFilter{
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Range:      r,
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return storage.ExpenseFilter{}, errInvalidLimit
		}
		f.Limit = n
	}
	return f, nil
}

var (
	errInvalidPage     = fmt.Errorf("%w: page must be a positive integer", core.ErrValidation)
	errInvalidPageSize = fmt.Errorf("%w: pageSize must be between 1 and %d", core.ErrValidation, listing.MaxPageSize)
)

// applyViewQuery folds the GET /expenses/view query into st. Parameters that
// are absent leave the stored value untouched.
func applyViewQuery(st *listing.State, q url.Values, now time.Time) error {
	if isTrue(q.Get("clear")) {
		st.ClearFilters()
	}
	if _, ok := q["search"]; ok {
		st.SearchTerm = sanitizeInput(q.Get("search"))
	}
	if v := strings.TrimSpace(q.Get("quick")); v != "" {
		f, err := listing.ParseQuickFilter(v)
		if err != nil {
			return err
		}
		if err := st.ApplyQuickFilter(f, now); err != nil {
			return err
		}
	}
	if _, ok := q["startDate"]; ok {
		t, err := core.ParseDate(q.Get("startDate"))
		if err != nil {
			return err
		}
		st.SetStart(t)
	}
	if _, ok := q["endDate"]; ok {
		t, err := core.ParseDate(q.Get("endDate"))
		if err != nil {
			return err
		}
		st.SetEnd(t)
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		field, err := listing.ParseSortField(v)
		if err != nil {
			return err
		}
		if d := strings.TrimSpace(q.Get("direction")); d != "" {
			dir, err := listing.ParseSortDirection(d)
			if err != nil {
				return err
			}
			st.SortField, st.SortDirection = field, dir
		} else {
			st.ToggleSort(field)
		}
	}
	if v := strings.TrimSpace(q.Get("pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > listing.MaxPageSize {
			return errInvalidPageSize
		}
		if n != st.PageSize {
			st.Page = 1
		}
		st.PageSize = n
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errInvalidPage
		}
		st.Page = n
	}
	if v := strings.TrimSpace(q.Get("expanded")); v != "" {
		st.FilterExpanded = isTrue(v)
	}
	return nil
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
