package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
)

func newIngestService(env *testEnv) *IngestService {
	return &IngestService{
		Expenses:   env.executor.Expenses,
		Categories: env.executor.Categories,
		Converter:  env.executor.Converter,
		Vocab:      env.executor.Vocab,
		Home:       env.executor.Home,
		Log:        env.executor.Log,
	}
}

func extractCSV(t *testing.T, data string) ([]RawRow, []RejectedRow) {
	t.Helper()
	rows, rejected, err := (&CSVExtractor{}).ExtractReader(strings.NewReader(data))
	require.NoError(t, err)
	return rows, rejected
}

func TestImportCSVStatement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newIngestService(env)

	data := strings.Join([]string{
		"Date,Description,Category,Amount,Currency",
		"2026-03-01,Weekly shop at Aldi,groceries,42.17,USD",
		"02/03/2026,Monthly pass,transport,\"€55,00\",",
		"2026-03-03,Headphones,electronics,1 199.99,USD",
	}, "\n")

	rows, rejected := extractCSV(t, data)
	summary, err := svc.Import(ctx, rows, rejected)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Accepted)
	require.Equal(t, 0, summary.Duplicates)
	require.Empty(t, summary.Rejected)
	t.Log("first import done")

	stored, err := env.expenses.List(ctx, repository.ExpenseFilters{})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	byDesc := make(map[string]repository.Expense, len(stored))
	for _, e := range stored {
		byDesc[e.Description] = e
	}

	pass := byDesc["Monthly pass"]
	require.Equal(t, "EUR", pass.Currency, "currency symbol in the amount cell wins over the empty currency column")
	require.Equal(t, "Transport", pass.Category)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), pass.Date)
	// 55 EUR * 1.10, frozen at import time
	require.True(t, pass.BaseAmount.Equal(decimal.RequireFromString("60.50")), "base %s", pass.BaseAmount)

	require.True(t, byDesc["Headphones"].Amount.Equal(decimal.RequireFromString("1199.99")))
}

func TestImportCSVTwiceSkipsDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newIngestService(env)

	data := strings.Join([]string{
		"date,category,description,amount",
		"2026-03-01,groceries,Weekly shop,42.17",
		"2026-03-02,transport,Bus fare,2.50",
		"2026-03-02,transport,Bus fare,2.50",
	}, "\n")

	rows, rejected := extractCSV(t, data)
	summary, err := svc.Import(ctx, rows, rejected)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Accepted)
	require.Equal(t, 1, summary.Duplicates, "identical row within the batch is a duplicate")

	summary, err = svc.Import(ctx, rows, rejected)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Accepted)
	require.Equal(t, 3, summary.Duplicates, "re-importing the same statement adds nothing")

	stored, err := env.expenses.List(ctx, repository.ExpenseFilters{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestImportReportsRejectedRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newIngestService(env)

	data := strings.Join([]string{
		"date,category,description,amount,currency",
		"2026-03-01,groceries,Weekly shop,42.17,",
		"not a date,groceries,Mystery,10.00,",
		"2026-03-02,transport,Free ride,0,",
		"2026-03-03,other,Opaque,??,",
		"2026-03-04,other,Odd money,5.00,123",
	}, "\n")

	rows, rejected := extractCSV(t, data)
	summary, err := svc.Import(ctx, rows, rejected)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Accepted)
	require.Len(t, summary.Rejected, 4)
	// line numbers are 1-based counting the header
	require.Equal(t, 3, summary.Rejected[0].Line)
	require.Contains(t, summary.Rejected[0].Reason, "date")
	require.Contains(t, summary.Rejected[1].Reason, "zero amount")
	require.Contains(t, summary.Rejected[3].Reason, "invalid currency")
}

func TestImportRowsWithoutCategoryOrCurrency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newIngestService(env)

	data := strings.Join([]string{
		"date,category,description,amount",
		"2026-03-01,,Cash withdrawal,100",
		"2026-03-02,NaN,Pharmacy,12.30",
	}, "\n")

	rows, rejected := extractCSV(t, data)
	summary, err := svc.Import(ctx, rows, rejected)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Accepted)

	stored, err := env.expenses.List(ctx, repository.ExpenseFilters{})
	require.NoError(t, err)
	for _, e := range stored {
		require.Equal(t, "Other", e.Category)
		require.Equal(t, "USD", e.Currency, "currency falls back to the home currency")
	}
}

func TestCSVSchemaErrorAbortsBatch(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"when,who,how much",
		"2026-03-01,Aldi,42.17",
	}, "\n")
	_, _, err := (&CSVExtractor{}).ExtractReader(strings.NewReader(data))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.ElementsMatch(t, []string{"date", "category", "description", "amount"}, schemaErr.Missing)
}

func TestCSVHeaderAliasesAndOrder(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"Monto,Descripción,Fecha,Categoría",
		"99.50,Teclado mecánico,2026-03-04,electrónica",
	}, "\n")
	rows, rejected, err := (&CSVExtractor{}).ExtractReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, rejected)
	require.Len(t, rows, 1)
	require.Equal(t, "2026-03-04", rows[0].Date)
	require.Equal(t, "99.50", rows[0].Amount)
	require.Equal(t, "Teclado mecánico", rows[0].Description)
}

func TestFingerprintNormalization(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := Fingerprint(date, decimal.RequireFromString("42.1"), "Weekly  Shop", "Groceries")
	b := Fingerprint(date, decimal.RequireFromString("42.10"), "weekly shop", "Groceries")
	require.Equal(t, a, b, "case, spacing and trailing zeros must not change the fingerprint")

	c := Fingerprint(date, decimal.RequireFromString("42.10"), "weekly shop", "Other")
	require.NotEqual(t, a, c)
	d := Fingerprint(date.AddDate(0, 0, 1), decimal.RequireFromString("42.10"), "weekly shop", "Groceries")
	require.NotEqual(t, a, d)
}

func TestImportFileRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := newIngestService(env)

	_, err := svc.ImportFile(context.Background(), "statement.xlsx")
	require.Error(t, err)
}
