package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExpenseRepo handles expenses.
type ExpenseRepo struct {
	db *sql.DB
}

func NewExpenseRepo(db *sql.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

func (r *ExpenseRepo) Insert(ctx context.Context, e Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO expenses(date, category, description, amount, currency, base_amount, base_currency, fingerprint, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		e.Date, e.Category, e.Description, e.Amount.String(), e.Currency,
		e.BaseAmount.String(), e.BaseCurrency, e.Fingerprint)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense id: %w", err)
	}
	return id, nil
}

func (r *ExpenseRepo) Get(ctx context.Context, id int64) (Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, date, category, description, amount, currency, base_amount, base_currency, fingerprint, created_at, updated_at FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Expense{}, ErrNotFound
		}
		return Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *ExpenseRepo) Update(ctx context.Context, id int64, u ExpenseUpdate) error {
	var set []string
	var args []interface{}
	if u.Date != nil {
		set = append(set, "date = ?")
		args = append(args, *u.Date)
	}
	if u.Category != nil {
		set = append(set, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Amount != nil {
		set = append(set, "amount = ?")
		args = append(args, u.Amount.String())
	}
	if u.BaseAmount != nil {
		set = append(set, "base_amount = ?")
		args = append(args, u.BaseAmount.String())
	}
	if u.Fingerprint != nil {
		set = append(set, "fingerprint = ?")
		args = append(args, *u.Fingerprint)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE expenses SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ExpenseRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ExpenseRepo) List(ctx context.Context, f ExpenseFilters) ([]Expense, error) {
	var where []string
	var args []interface{}

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, f.To)
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := "SELECT id, date, category, description, amount, currency, base_amount, base_currency, fingerprint, created_at, updated_at FROM expenses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FingerprintExists reports whether any committed expense carries the fingerprint.
func (r *ExpenseRepo) FingerprintExists(ctx context.Context, fp string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE fingerprint = ?`, fp).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	return n > 0, nil
}

// SumBaseByCategoryForPeriod returns base-currency totals per category for a
// calendar month, used for budget snapshots.
func (r *ExpenseRepo) SumBaseByCategoryForPeriod(ctx context.Context, f ExpenseFilters) (map[string]decimal.Decimal, error) {
	rows, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, e := range rows {
		out[e.Category] = out[e.Category].Add(e.BaseAmount)
	}
	return out, nil
}

// scanExpense handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row scanner) (Expense, error) {
	var e Expense
	var amount, base string
	if err := row.Scan(&e.ID, &e.Date, &e.Category, &e.Description, &amount, &e.Currency,
		&base, &e.BaseCurrency, &e.Fingerprint, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Expense{}, err
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return Expense{}, fmt.Errorf("amount column: %w", err)
	}
	if e.BaseAmount, err = decimal.NewFromString(base); err != nil {
		return Expense{}, fmt.Errorf("base_amount column: %w", err)
	}
	return e, nil
}
