package testdata

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
	"github.com/AnluYaens/budgetbuddy/internal/service"
)

// Repos bundles repos used by Seed.
type Repos struct {
	Expenses *repository.ExpenseRepo
	Budgets  *repository.BudgetRepo
}

type sample struct {
	desc     string
	category string
	min, max int // whole units
}

var samples = []sample{
	{desc: "Weekly shop", category: "Groceries", min: 30, max: 120},
	{desc: "Corner store run", category: "Groceries", min: 5, max: 25},
	{desc: "Streaming subscription", category: "Entertainment", min: 9, max: 18},
	{desc: "Cinema tickets", category: "Entertainment", min: 15, max: 40},
	{desc: "USB-C cable", category: "Electronics", min: 8, max: 30},
	{desc: "Metro card top-up", category: "Transport", min: 10, max: 50},
	{desc: "Taxi home", category: "Transport", min: 12, max: 35},
	{desc: "Electricity bill", category: "Utilities", min: 40, max: 110},
	{desc: "Pharmacy", category: "Health", min: 6, max: 45},
}

// Seed fills the database with three months of plausible home-currency
// expenses plus a budget per category, for trying the app without real data.
func Seed(ctx context.Context, repos Repos, home string) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	for i := 0; i < 60; i++ {
		s := samples[rng.Intn(len(samples))]
		amount := decimal.NewFromInt(int64(s.min + rng.Intn(s.max-s.min+1))).
			Add(decimal.New(int64(rng.Intn(100)), -2))
		date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -rng.Intn(90))
		_, err := repos.Expenses.Insert(ctx, repository.Expense{
			Date:         date,
			Category:     s.category,
			Description:  s.desc,
			Amount:       amount,
			Currency:     home,
			BaseAmount:   amount,
			BaseCurrency: home,
			Fingerprint:  service.Fingerprint(date, amount, s.desc, s.category),
		})
		if err != nil {
			return err
		}
	}

	period := now.Format("2006-01")
	limits := map[string]int64{
		"Groceries":     400,
		"Entertainment": 80,
		"Transport":     120,
		"Utilities":     150,
	}
	for category, limit := range limits {
		b := repository.Budget{
			ID:           "demo:" + category + ":" + period,
			Category:     category,
			Period:       period,
			Limit:        decimal.NewFromInt(limit),
			BaseCurrency: home,
		}
		if err := repos.Budgets.Upsert(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
