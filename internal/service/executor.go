package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AnluYaens/budgetbuddy/internal/currency"
	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
)

// Executor applies validated Operations through the repository interface. It
// is the single place that enforces business rules: non-zero amounts,
// id resolution, budget upsert semantics.
type Executor struct {
	Expenses   *repository.ExpenseRepo
	Budgets    *repository.BudgetRepo
	Categories *repository.CategoryRepo
	Converter  *currency.Converter
	Vocab      *Vocabulary
	Home       string
	Log        zerolog.Logger
}

// Result carries the outcome of one executed Operation, as plain data for the
// presentation layer.
type Result struct {
	Kind         OpKind
	Expense      *repository.Expense
	Expenses     []repository.Expense
	Total        decimal.Decimal
	Budget       *repository.Budget
	BaseCurrency string
	RateStale    bool
	Message      string
}

// Execute applies op. Each operation is a single atomic unit against the
// repository; nothing is left partially applied.
func (ex *Executor) Execute(ctx context.Context, op Operation) (Result, error) {
	switch op.Kind {
	case OpCreateExpense:
		return ex.createExpense(ctx, *op.Create)
	case OpQueryExpenses:
		return ex.queryExpenses(ctx, *op.Query)
	case OpDeleteExpense:
		return ex.deleteExpense(ctx, *op.Delete)
	case OpUpdateExpense:
		return ex.updateExpense(ctx, *op.Update)
	case OpSetBudget:
		return ex.setBudget(ctx, *op.Budget)
	case OpSmallTalk:
		return Result{Kind: OpSmallTalk, Message: op.Reply}, nil
	default:
		return Result{}, fmt.Errorf("execute: unknown operation kind %q", op.Kind)
	}
}

func (ex *Executor) createExpense(ctx context.Context, op CreateExpense) (Result, error) {
	if op.Amount.IsZero() {
		return Result{}, fmt.Errorf("create expense: amount must be non-zero")
	}

	// freeze the base-currency value now; if no rate is available the
	// expense is not created at all
	conv, err := ex.Converter.Convert(ctx, op.Amount, op.Currency, ex.Home)
	if err != nil {
		return Result{}, fmt.Errorf("create expense: %w", err)
	}

	if err := ex.ensureCategory(ctx, op.Category); err != nil {
		return Result{}, err
	}

	e := repository.Expense{
		Date:         op.Date,
		Category:     op.Category,
		Description:  op.Description,
		Amount:       op.Amount,
		Currency:     op.Currency,
		BaseAmount:   conv.Amount,
		BaseCurrency: ex.Home,
		Fingerprint:  Fingerprint(op.Date, op.Amount, op.Description, op.Category),
	}
	id, err := ex.Expenses.Insert(ctx, e)
	if err != nil {
		return Result{}, err
	}
	e.ID = id
	ex.Log.Info().Int64("id", id).Str("category", e.Category).
		Str("amount", e.Amount.String()).Str("currency", e.Currency).Msg("expense recorded")

	return Result{
		Kind:         OpCreateExpense,
		Expense:      &e,
		BaseCurrency: ex.Home,
		RateStale:    conv.Stale,
		Message: fmt.Sprintf("Recorded %s %s for %s on %s",
			e.Amount.StringFixed(2), e.Currency, e.Category, e.Date.Format("2006-01-02")),
	}, nil
}

func (ex *Executor) queryExpenses(ctx context.Context, op QueryExpenses) (Result, error) {
	rows, err := ex.Expenses.List(ctx, repository.ExpenseFilters{
		Category: op.Category,
		From:     op.From,
		To:       op.To,
		Search:   op.Search,
	})
	if err != nil {
		return Result{}, err
	}
	total := decimal.Zero
	for _, e := range rows {
		total = total.Add(e.BaseAmount)
	}
	label := "expenses"
	if op.Category != "" {
		label = strings.ToLower(op.Category) + " expenses"
	}
	return Result{
		Kind:         OpQueryExpenses,
		Expenses:     rows,
		Total:        total,
		BaseCurrency: ex.Home,
		Message:      fmt.Sprintf("%d %s totalling %s %s", len(rows), label, total.StringFixed(2), ex.Home),
	}, nil
}

func (ex *Executor) deleteExpense(ctx context.Context, op DeleteExpense) (Result, error) {
	if err := ex.Expenses.Delete(ctx, op.ID); err != nil {
		return Result{}, err
	}
	ex.Log.Info().Int64("id", op.ID).Msg("expense deleted")
	return Result{Kind: OpDeleteExpense, Message: fmt.Sprintf("Deleted expense %d", op.ID)}, nil
}

func (ex *Executor) updateExpense(ctx context.Context, op UpdateExpense) (Result, error) {
	existing, err := ex.Expenses.Get(ctx, op.ID)
	if err != nil {
		return Result{}, err
	}

	u := repository.ExpenseUpdate{
		Date:        op.Fields.Date,
		Description: op.Fields.Description,
	}
	if op.Fields.Category != nil {
		if err := ex.ensureCategory(ctx, *op.Fields.Category); err != nil {
			return Result{}, err
		}
		u.Category = op.Fields.Category
	}
	stale := false
	if op.Fields.Amount != nil {
		if op.Fields.Amount.IsZero() {
			return Result{}, fmt.Errorf("update expense: amount must be non-zero")
		}
		// the amount itself changed, so the frozen base value is recomputed
		conv, err := ex.Converter.Convert(ctx, *op.Fields.Amount, existing.Currency, ex.Home)
		if err != nil {
			return Result{}, fmt.Errorf("update expense: %w", err)
		}
		u.Amount = op.Fields.Amount
		u.BaseAmount = &conv.Amount
		stale = conv.Stale
	}

	merged := existing
	if u.Date != nil {
		merged.Date = *u.Date
	}
	if u.Category != nil {
		merged.Category = *u.Category
	}
	if u.Description != nil {
		merged.Description = *u.Description
	}
	if u.Amount != nil {
		merged.Amount = *u.Amount
	}
	fp := Fingerprint(merged.Date, merged.Amount, merged.Description, merged.Category)
	u.Fingerprint = &fp

	if err := ex.Expenses.Update(ctx, op.ID, u); err != nil {
		return Result{}, err
	}
	updated, err := ex.Expenses.Get(ctx, op.ID)
	if err != nil {
		return Result{}, err
	}
	ex.Log.Info().Int64("id", op.ID).Msg("expense updated")
	return Result{
		Kind:         OpUpdateExpense,
		Expense:      &updated,
		BaseCurrency: ex.Home,
		RateStale:    stale,
		Message:      fmt.Sprintf("Updated expense %d", op.ID),
	}, nil
}

func (ex *Executor) setBudget(ctx context.Context, op SetBudget) (Result, error) {
	if !op.Limit.IsPositive() {
		return Result{}, fmt.Errorf("set budget: limit must be positive")
	}
	if err := ex.ensureCategory(ctx, op.Category); err != nil {
		return Result{}, err
	}
	b := repository.Budget{
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte("budget:"+op.Category+":"+op.Period)).String(),
		Category:     op.Category,
		Period:       op.Period,
		Limit:        op.Limit,
		BaseCurrency: ex.Home,
	}
	if err := ex.Budgets.Upsert(ctx, b); err != nil {
		return Result{}, err
	}
	ex.Log.Info().Str("category", b.Category).Str("period", b.Period).
		Str("limit", b.Limit.String()).Msg("budget set")
	return Result{
		Kind:    OpSetBudget,
		Budget:  &b,
		Message: fmt.Sprintf("Budget for %s in %s set to %s %s", b.Category, b.Period, b.Limit.StringFixed(2), ex.Home),
	}, nil
}

// ensureCategory creates the category row when the vocabulary did not match,
// so unmatched categories are created fresh rather than rejected.
func (ex *Executor) ensureCategory(ctx context.Context, name string) error {
	for _, known := range ex.Vocab.Names() {
		if known == name {
			return nil
		}
	}
	if err := ex.Categories.Upsert(ctx, repository.Category{ID: categoryID(name), Name: name, SortOrder: len(ex.Vocab.Names())}); err != nil {
		return fmt.Errorf("create category %q: %w", name, err)
	}
	ex.Vocab.Add(name)
	return nil
}
