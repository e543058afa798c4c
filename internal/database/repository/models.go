package repository

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an id does not resolve to a row.
var ErrNotFound = errors.New("not found")

// Expense represents a committed expense row. Amounts carry the original
// currency plus the base-currency value frozen at creation time.
type Expense struct {
	ID           int64
	Date         time.Time
	Category     string
	Description  string
	Amount       decimal.Decimal
	Currency     string
	BaseAmount   decimal.Decimal
	BaseCurrency string
	Fingerprint  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpenseUpdate holds optional field changes for an expense. Nil means keep.
type ExpenseUpdate struct {
	Date        *time.Time
	Category    *string
	Description *string
	Amount      *decimal.Decimal
	BaseAmount  *decimal.Decimal
	Fingerprint *string
}

// Budget represents a budget row. One active budget per (category, period).
type Budget struct {
	ID           string
	Category     string
	Period       string // "2006-01"
	Limit        decimal.Decimal
	BaseCurrency string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category represents a category row.
type Category struct {
	ID        string
	Name      string
	SortOrder int
}

// ExpenseFilters defines list filters.
type ExpenseFilters struct {
	Category string
	From     time.Time // inclusive; zero = unbounded
	To       time.Time // exclusive; zero = unbounded
	Search   string
}
