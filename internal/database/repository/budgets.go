package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// BudgetRepo handles budgets.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo { return &BudgetRepo{db: db} }

// Upsert inserts or replaces the budget keyed on (category, period).
func (r *BudgetRepo) Upsert(ctx context.Context, b Budget) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO budgets(id, category, period, limit_amount, base_currency, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(category, period) DO UPDATE SET
	 limit_amount=excluded.limit_amount,
	 base_currency=excluded.base_currency,
	 updated_at=CURRENT_TIMESTAMP;
	`, b.ID, b.Category, b.Period, b.Limit.String(), b.BaseCurrency)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *BudgetRepo) Get(ctx context.Context, category, period string) (Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, category, period, limit_amount, base_currency, created_at, updated_at FROM budgets WHERE category = ? AND period = ?`, category, period)
	b, err := scanBudget(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Budget{}, ErrNotFound
		}
		return Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *BudgetRepo) ListForPeriod(ctx context.Context, period string) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category, period, limit_amount, base_currency, created_at, updated_at FROM budgets WHERE period = ? ORDER BY category`, period)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("list budgets: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row scanner) (Budget, error) {
	var b Budget
	var limit string
	if err := row.Scan(&b.ID, &b.Category, &b.Period, &limit, &b.BaseCurrency, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	var err error
	if b.Limit, err = decimal.NewFromString(limit); err != nil {
		return Budget{}, fmt.Errorf("limit_amount column: %w", err)
	}
	return b, nil
}
