package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 200
)

type (
	Money struct {
		Cents int64
	}

	Category struct {
		ID        string
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CategoryRef is the slim category view embedded in expenses.
	CategoryRef struct {
		ID   string
		Name string
	}

	Expense struct {
		ID          string
		Amount      Money
		Description string
		Date        time.Time
		CategoryID  string
		Category    CategoryRef
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpenseInput holds the user-editable expense fields for create and update.
	ExpenseInput struct {
		Amount      Money
		Description string
		Date        time.Time
		CategoryID  string
	}
)

var (
	// ErrValidation is the root of every input validation error.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrAmountTooLarge     = fmt.Errorf("%w: exceeds the maximum", ErrInvalidAmount)
	ErrEmptyName          = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong        = fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, MaxCategoryNameLength)
	ErrEmptyDescription   = fmt.Errorf("%w: description is required", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrMissingDate        = fmt.Errorf("%w: date is required", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrMissingCategory    = fmt.Errorf("%w: category is required", ErrValidation)
	ErrInvalidCategory    = fmt.Errorf("%w: category not found", ErrValidation)
	ErrInvalidID          = fmt.Errorf("%w: invalid id format", ErrValidation)

	ErrNotFound      = errors.New("not found")
	ErrCategoryInUse = errors.New("cannot delete category with expenses")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Add saturates at math.MaxInt64 instead of wrapping.
func (m Money) Add(o Money) Money {
	if o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

// NormalizeName trims a category name and checks its bounds.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len([]rune(name)) > MaxCategoryNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func (in ExpenseInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len([]rune(in.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		return ErrMissingCategory
	}
	return nil
}

// Normalized returns a copy with trimmed text and a UTC date.
func (in ExpenseInput) Normalized() ExpenseInput {
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Date = in.Date.UTC()
	return in
}
