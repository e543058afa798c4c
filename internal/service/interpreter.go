package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AnluYaens/budgetbuddy/internal/llm"
)

// Interpreter translates free-text commands into validated Operations. It
// delegates extraction to the language-model collaborator and treats the
// response as untrusted: anything outside the closed operation schema yields
// a ParseError, never a partially populated Operation. It never touches the
// repository.
type Interpreter struct {
	provider llm.Provider
	vocab    *Vocabulary
	home     string
	now      func() time.Time
	log      zerolog.Logger
}

func NewInterpreter(provider llm.Provider, vocab *Vocabulary, homeCurrency string, log zerolog.Logger) *Interpreter {
	return &Interpreter{
		provider: provider,
		vocab:    vocab,
		home:     strings.ToUpper(homeCurrency),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Interpret parses commandText into an Operation. Recoverable problems (bad
// model output, missing fields, timeouts) come back as *ParseError.
func (it *Interpreter) Interpret(ctx context.Context, commandText string) (Operation, error) {
	commandText = strings.TrimSpace(commandText)
	if commandText == "" {
		return Operation{}, &ParseError{Reason: "empty command"}
	}

	resp, err := it.provider.Interpret(ctx, llm.InterpretRequest{
		Command:      commandText,
		Today:        it.now().Format("2006-01-02"),
		Categories:   it.vocab.Names(),
		HomeCurrency: it.home,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Operation{}, &ParseError{Reason: "timeout"}
		}
		return Operation{}, fmt.Errorf("model query: %w", err)
	}

	op, err := it.validate(resp)
	if err != nil {
		it.log.Debug().Err(err).Str("command", commandText).Msg("command rejected")
		return Operation{}, err
	}
	return op, nil
}

func (it *Interpreter) validate(resp llm.InterpretResponse) (Operation, error) {
	switch resp.Kind {
	case llm.KindReply:
		reply := strings.TrimSpace(resp.Reply)
		if reply == "" {
			return Operation{}, &ParseError{Reason: "empty reply from model"}
		}
		return Operation{Kind: OpSmallTalk, Reply: reply}, nil
	case llm.KindOperation:
		// fallthrough below
	default:
		return Operation{}, &ParseError{Reason: fmt.Sprintf("unknown response type %q", resp.Kind)}
	}

	switch resp.Operation {
	case "create_expense":
		return it.validateCreate(resp.Arguments)
	case "query_expenses":
		return it.validateQuery(resp.Arguments)
	case "delete_expense":
		return it.validateDelete(resp.Arguments)
	case "update_expense":
		return it.validateUpdate(resp.Arguments)
	case "set_budget":
		return it.validateBudget(resp.Arguments)
	default:
		return Operation{}, &ParseError{Reason: fmt.Sprintf("unknown operation %q", resp.Operation)}
	}
}

func (it *Interpreter) validateCreate(raw json.RawMessage) (Operation, error) {
	var args struct {
		Amount      json.RawMessage `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
		Currency    string          `json:"currency"`
	}
	if err := strictDecode(raw, &args); err != nil {
		return Operation{}, &ParseError{Reason: "create_expense: " + err.Error()}
	}
	if len(args.Amount) == 0 {
		return Operation{}, &ParseError{Reason: "create_expense: missing amount"}
	}
	amount, symbolCurrency, err := decodeAmountField(args.Amount)
	if err != nil {
		return Operation{}, &ParseError{Reason: "create_expense: " + err.Error()}
	}
	if strings.TrimSpace(args.Category) == "" {
		return Operation{}, &ParseError{Reason: "create_expense: missing category"}
	}

	currency, err := it.resolveCurrency(args.Currency, symbolCurrency)
	if err != nil {
		return Operation{}, err
	}
	date, err := it.resolveDate(args.Date)
	if err != nil {
		return Operation{}, err
	}
	category, _ := it.vocab.Normalize(args.Category)

	return Operation{
		Kind: OpCreateExpense,
		Create: &CreateExpense{
			Amount:      amount,
			Currency:    currency,
			Category:    category,
			Description: strings.TrimSpace(args.Description),
			Date:        date,
		},
	}, nil
}

func (it *Interpreter) validateQuery(raw json.RawMessage) (Operation, error) {
	var args struct {
		Category string `json:"category"`
		From     string `json:"from"`
		To       string `json:"to"`
		Search   string `json:"search"`
	}
	if err := strictDecode(raw, &args); err != nil {
		return Operation{}, &ParseError{Reason: "query_expenses: " + err.Error()}
	}
	q := &QueryExpenses{Search: strings.TrimSpace(args.Search)}
	if strings.TrimSpace(args.Category) != "" {
		q.Category, _ = it.vocab.Normalize(args.Category)
	}
	if args.From != "" {
		from, err := parseDate(args.From)
		if err != nil {
			return Operation{}, &ParseError{Reason: "query_expenses: " + err.Error()}
		}
		q.From = from
	}
	if args.To != "" {
		to, err := parseDate(args.To)
		if err != nil {
			return Operation{}, &ParseError{Reason: "query_expenses: " + err.Error()}
		}
		// inclusive in the command, exclusive in the repository filter
		q.To = to.AddDate(0, 0, 1)
	}
	return Operation{Kind: OpQueryExpenses, Query: q}, nil
}

func (it *Interpreter) validateDelete(raw json.RawMessage) (Operation, error) {
	var args struct {
		ExpenseID *int64 `json:"expense_id"`
	}
	if err := strictDecode(raw, &args); err != nil {
		return Operation{}, &ParseError{Reason: "delete_expense: " + err.Error()}
	}
	if args.ExpenseID == nil || *args.ExpenseID <= 0 {
		return Operation{}, &ParseError{Reason: "delete_expense: missing or invalid expense_id"}
	}
	return Operation{Kind: OpDeleteExpense, Delete: &DeleteExpense{ID: *args.ExpenseID}}, nil
}

func (it *Interpreter) validateUpdate(raw json.RawMessage) (Operation, error) {
	var args struct {
		ExpenseID *int64                     `json:"expense_id"`
		Fields    map[string]json.RawMessage `json:"fields"`
	}
	if err := strictDecode(raw, &args); err != nil {
		return Operation{}, &ParseError{Reason: "update_expense: " + err.Error()}
	}
	if args.ExpenseID == nil || *args.ExpenseID <= 0 {
		return Operation{}, &ParseError{Reason: "update_expense: missing or invalid expense_id"}
	}
	if len(args.Fields) == 0 {
		return Operation{}, &ParseError{Reason: "update_expense: no fields to change"}
	}

	var changes ExpenseChanges
	for field, value := range args.Fields {
		switch field {
		case "amount":
			amount, _, err := decodeAmountField(value)
			if err != nil {
				return Operation{}, &ParseError{Reason: "update_expense: amount: " + err.Error()}
			}
			changes.Amount = &amount
		case "category":
			var s string
			if err := json.Unmarshal(value, &s); err != nil || strings.TrimSpace(s) == "" {
				return Operation{}, &ParseError{Reason: "update_expense: invalid category"}
			}
			category, _ := it.vocab.Normalize(s)
			changes.Category = &category
		case "description":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Operation{}, &ParseError{Reason: "update_expense: invalid description"}
			}
			s = strings.TrimSpace(s)
			changes.Description = &s
		case "date":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Operation{}, &ParseError{Reason: "update_expense: invalid date"}
			}
			date, err := parseDate(s)
			if err != nil {
				return Operation{}, &ParseError{Reason: "update_expense: " + err.Error()}
			}
			changes.Date = &date
		default:
			return Operation{}, &ParseError{Reason: fmt.Sprintf("update_expense: unknown field %q", field)}
		}
	}
	return Operation{Kind: OpUpdateExpense, Update: &UpdateExpense{ID: *args.ExpenseID, Fields: changes}}, nil
}

func (it *Interpreter) validateBudget(raw json.RawMessage) (Operation, error) {
	var args struct {
		Category string          `json:"category"`
		Limit    json.RawMessage `json:"limit"`
		Period   string          `json:"period"`
	}
	if err := strictDecode(raw, &args); err != nil {
		return Operation{}, &ParseError{Reason: "set_budget: " + err.Error()}
	}
	if strings.TrimSpace(args.Category) == "" {
		return Operation{}, &ParseError{Reason: "set_budget: missing category"}
	}
	if len(args.Limit) == 0 {
		return Operation{}, &ParseError{Reason: "set_budget: missing limit"}
	}
	limit, _, err := decodeAmountField(args.Limit)
	if err != nil {
		return Operation{}, &ParseError{Reason: "set_budget: " + err.Error()}
	}

	period := strings.TrimSpace(args.Period)
	if period == "" {
		period = it.now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", period); err != nil {
		return Operation{}, &ParseError{Reason: fmt.Sprintf("set_budget: invalid period %q", args.Period)}
	}

	category, _ := it.vocab.Normalize(args.Category)
	return Operation{
		Kind:   OpSetBudget,
		Budget: &SetBudget{Category: category, Limit: limit, Period: period},
	}, nil
}

func (it *Interpreter) resolveCurrency(explicit, fromSymbol string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(explicit))
	if code == "" {
		code = fromSymbol
	}
	if code == "" {
		return it.home, nil
	}
	if !isCurrencyCode(code) {
		return "", &ParseError{Reason: fmt.Sprintf("invalid currency %q", explicit)}
	}
	return code, nil
}

func (it *Interpreter) resolveDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		today := it.now()
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := parseDate(s)
	if err != nil {
		return time.Time{}, &ParseError{Reason: err.Error()}
	}
	return date, nil
}

// decodeAmountField accepts either a JSON number or a string such as "$50".
func decodeAmountField(raw json.RawMessage) (decimal.Decimal, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return decimal.Decimal{}, "", fmt.Errorf("missing amount")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Decimal{}, "", fmt.Errorf("invalid amount")
		}
		return ParseAmount(s)
	}
	value, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return decimal.Decimal{}, "", fmt.Errorf("invalid amount %s", trimmed)
	}
	return value, "", nil
}

// strictDecode rejects unknown fields and trailing data.
func strictDecode(raw json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("missing arguments")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data in arguments")
	}
	return nil
}
