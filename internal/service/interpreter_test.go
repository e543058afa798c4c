package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AnluYaens/budgetbuddy/internal/llm"
)

type fakeProvider struct {
	resp llm.InterpretResponse
	err  error
	last llm.InterpretRequest
}

func (f *fakeProvider) Interpret(ctx context.Context, req llm.InterpretRequest) (llm.InterpretResponse, error) {
	f.last = req
	if f.err != nil {
		return llm.InterpretResponse{}, f.err
	}
	return f.resp, nil
}

func testInterpreter(p llm.Provider) *Interpreter {
	vocab := NewVocabulary([]string{"Groceries", "Electronics", "Entertainment", "Transport", "Other"})
	it := NewInterpreter(p, vocab, "USD", zerolog.Nop())
	it.now = func() time.Time { return time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC) }
	return it
}

func operationResponse(op string, args string) llm.InterpretResponse {
	return llm.InterpretResponse{
		Kind:      llm.KindOperation,
		Operation: op,
		Arguments: json.RawMessage(args),
	}
}

func TestInterpretCreateExpense(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{resp: operationResponse("create_expense",
		`{"amount": "$50", "category": "groceries", "description": "weekly shop"}`)}
	it := testInterpreter(p)

	op, err := it.Interpret(context.Background(), "I spent $50 on groceries")
	require.NoError(t, err)
	require.Equal(t, OpCreateExpense, op.Kind)
	require.NotNil(t, op.Create)
	require.Equal(t, "50", op.Create.Amount.String())
	require.Equal(t, "USD", op.Create.Currency)
	require.Equal(t, "Groceries", op.Create.Category)
	require.Equal(t, "weekly shop", op.Create.Description)
	// missing date defaults to today
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), op.Create.Date)

	// the prompt context carries today's date, the vocabulary and home currency
	require.Equal(t, "2026-03-14", p.last.Today)
	require.Contains(t, p.last.Categories, "Groceries")
	require.Equal(t, "USD", p.last.HomeCurrency)
}

func TestInterpretCreateExpenseExplicitCurrencyAndDate(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{resp: operationResponse("create_expense",
		`{"amount": 12.5, "currency": "eur", "category": "transport", "date": "02/03/2026"}`)}
	it := testInterpreter(p)

	op, err := it.Interpret(context.Background(), "12.50 euro for the tram on march 2nd")
	require.NoError(t, err)
	require.Equal(t, "EUR", op.Create.Currency)
	// day-first for slash dates
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), op.Create.Date)
}

func TestInterpretRejectsMalformedResponses(t *testing.T) {
	t.Parallel()

	cases := map[string]llm.InterpretResponse{
		"unknown type":      {Kind: "banter", Reply: "hi"},
		"unknown operation": operationResponse("transfer_funds", `{}`),
		"missing amount":    operationResponse("create_expense", `{"category": "groceries"}`),
		"missing category":  operationResponse("create_expense", `{"amount": 10}`),
		"bad amount":        operationResponse("create_expense", `{"amount": "lots", "category": "groceries"}`),
		"unknown argument":  operationResponse("create_expense", `{"amount": 10, "category": "groceries", "mood": "great"}`),
		"bad currency":      operationResponse("create_expense", `{"amount": 10, "category": "groceries", "currency": "dollars"}`),
		"numeric currency":  operationResponse("create_expense", `{"amount": 10, "category": "groceries", "currency": "123"}`),
		"garbage currency":  operationResponse("create_expense", `{"amount": 10, "category": "groceries", "currency": "d0g"}`),
		"bad date":          operationResponse("create_expense", `{"amount": 10, "category": "groceries", "date": "whenever"}`),
		"delete without id": operationResponse("delete_expense", `{}`),
		"delete bad id":     operationResponse("delete_expense", `{"expense_id": -4}`),
		"update no fields":  operationResponse("update_expense", `{"expense_id": 3, "fields": {}}`),
		"update bad field":  operationResponse("update_expense", `{"expense_id": 3, "fields": {"merchant": "aldi"}}`),
		"budget no limit":   operationResponse("set_budget", `{"category": "groceries"}`),
		"budget bad period": operationResponse("set_budget", `{"category": "groceries", "limit": 100, "period": "march"}`),
		"empty reply":       {Kind: llm.KindReply},
	}
	for name, resp := range cases {
		it := testInterpreter(&fakeProvider{resp: resp})
		op, err := it.Interpret(context.Background(), "do the thing")
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "case %q", name)
		require.Zero(t, op, "case %q must not leak a partial operation", name)
	}
}

func TestInterpretQueryRange(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{resp: operationResponse("query_expenses",
		`{"category": "entertainment", "from": "2026-03-01", "to": "2026-03-31", "search": "cinema"}`)}
	it := testInterpreter(p)

	op, err := it.Interpret(context.Background(), "what did I spend on fun in march")
	require.NoError(t, err)
	require.Equal(t, OpQueryExpenses, op.Kind)
	require.Equal(t, "Entertainment", op.Query.Category)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), op.Query.From)
	// "to" is inclusive in the command, exclusive in the filter
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), op.Query.To)
	require.Equal(t, "cinema", op.Query.Search)
}

func TestInterpretUpdateAndBudget(t *testing.T) {
	t.Parallel()

	it := testInterpreter(&fakeProvider{resp: operationResponse("update_expense",
		`{"expense_id": 5, "fields": {"amount": "75", "category": "electronics"}}`)})
	op, err := it.Interpret(context.Background(), "change expense 5 to 75 in electronics")
	require.NoError(t, err)
	require.Equal(t, OpUpdateExpense, op.Kind)
	require.Equal(t, int64(5), op.Update.ID)
	require.NotNil(t, op.Update.Fields.Amount)
	require.Equal(t, "75", op.Update.Fields.Amount.String())
	require.NotNil(t, op.Update.Fields.Category)
	require.Equal(t, "Electronics", *op.Update.Fields.Category)
	require.Nil(t, op.Update.Fields.Date)

	it = testInterpreter(&fakeProvider{resp: operationResponse("set_budget",
		`{"category": "groceries", "limit": 400}`)})
	op, err = it.Interpret(context.Background(), "cap groceries at 400")
	require.NoError(t, err)
	require.Equal(t, OpSetBudget, op.Kind)
	require.Equal(t, "Groceries", op.Budget.Category)
	require.Equal(t, "400", op.Budget.Limit.String())
	// period defaults to the current month
	require.Equal(t, "2026-03", op.Budget.Period)
}

func TestInterpretSmallTalk(t *testing.T) {
	t.Parallel()

	it := testInterpreter(&fakeProvider{resp: llm.InterpretResponse{
		Kind:  llm.KindReply,
		Reply: "I can only help with expenses and budgets.",
	}})
	op, err := it.Interpret(context.Background(), "what's the weather")
	require.NoError(t, err)
	require.Equal(t, OpSmallTalk, op.Kind)
	require.Equal(t, "I can only help with expenses and budgets.", op.Reply)
}

func TestInterpretProviderFailures(t *testing.T) {
	t.Parallel()

	it := testInterpreter(&fakeProvider{err: context.DeadlineExceeded})
	_, err := it.Interpret(context.Background(), "log 10 on lunch")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	_, err = it.Interpret(context.Background(), "   ")
	require.ErrorAs(t, err, &perr)
}
