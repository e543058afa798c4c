package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpKind tags the closed set of operation variants.
type OpKind string

const (
	OpCreateExpense OpKind = "create_expense"
	OpQueryExpenses OpKind = "query_expenses"
	OpDeleteExpense OpKind = "delete_expense"
	OpUpdateExpense OpKind = "update_expense"
	OpSetBudget     OpKind = "set_budget"
	OpSmallTalk     OpKind = "small_talk"
)

// Operation is a validated, structured intent derived from a user command.
// Exactly the payload matching Kind is populated.
type Operation struct {
	Kind   OpKind
	Create *CreateExpense
	Query  *QueryExpenses
	Delete *DeleteExpense
	Update *UpdateExpense
	Budget *SetBudget
	Reply  string
}

// CreateExpense records a new expense.
type CreateExpense struct {
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	Date        time.Time
}

// QueryExpenses lists expenses by optional category, date range and
// description search.
type QueryExpenses struct {
	Category string
	From     time.Time
	To       time.Time
	Search   string
}

// DeleteExpense removes an expense by id.
type DeleteExpense struct {
	ID int64
}

// UpdateExpense modifies selected fields of an expense.
type UpdateExpense struct {
	ID     int64
	Fields ExpenseChanges
}

// ExpenseChanges holds the updatable field set. Nil means keep.
type ExpenseChanges struct {
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *time.Time
}

// SetBudget creates or replaces the budget for (category, period).
type SetBudget struct {
	Category string
	Limit    decimal.Decimal
	Period   string // "2006-01"
}

// ParseError reports a command that could not be interpreted into a valid
// operation. It is recoverable: the user can rephrase.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "cannot interpret command: " + e.Reason
}
