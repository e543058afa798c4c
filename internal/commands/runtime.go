package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/AnluYaens/budgetbuddy/internal/config"
	"github.com/AnluYaens/budgetbuddy/internal/currency"
	"github.com/AnluYaens/budgetbuddy/internal/database"
	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
	"github.com/AnluYaens/budgetbuddy/internal/llm"
	"github.com/AnluYaens/budgetbuddy/internal/logger"
	"github.com/AnluYaens/budgetbuddy/internal/secrets"
	"github.com/AnluYaens/budgetbuddy/internal/service"
)

// runtime holds the fully wired application: config, database, repositories
// and services. Commands build it once, use it, and Close it.
type runtime struct {
	cfg         config.Config
	db          *sql.DB
	log         zerolog.Logger
	logCloser   io.Closer
	expenses    *repository.ExpenseRepo
	budgets     *repository.BudgetRepo
	categories  *repository.CategoryRepo
	converter   *currency.Converter
	interpreter *service.Interpreter
	executor    *service.Executor
	ingest      *service.IngestService
	maintenance *service.MaintenanceService
}

type runtimeOptions struct {
	// migrate runs pending schema migrations before opening repositories.
	migrate bool
	// fileLog sends logs to the configured log file instead of stderr, for
	// use under the TUI where stderr would tear the screen.
	fileLog bool
}

func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logger.New()
	var logCloser io.Closer
	if opts.fileLog && cfg.UI.LogPath != "" {
		fileLog, closer, err := logger.NewFile(cfg.UI.LogPath)
		if err == nil {
			log = fileLog
			logCloser = closer
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if opts.migrate {
		if err := database.RunMigrationsWithDB(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if err := database.SeedDefaults(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}

	expenses := repository.NewExpenseRepo(db)
	budgets := repository.NewBudgetRepo(db)
	categories := repository.NewCategoryRepo(db)

	cats, err := categories.List(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	vocab := service.NewVocabulary(names)

	rateKey := cfg.Currency.ResolveAPIKey()
	if rateKey == "" {
		if k, err := secrets.FetchKey(secrets.ServiceExchange); err == nil {
			rateKey = k
		}
	}
	rateClient := currency.NewAPIClient(cfg.Currency.ProviderURL, rateKey, cfg.Currency.Timeout)
	converter := currency.NewConverter(rateClient, cfg.Currency.CacheTTL, log)

	llmKey := cfg.LLM.ResolveAPIKey()
	if llmKey == "" {
		if k, err := secrets.FetchKey(secrets.ServiceGemini); err == nil {
			llmKey = k
		}
	}
	provider := llm.NewGeminiProvider(llmKey, cfg.LLM.Model, cfg.LLM.Timeout)

	home := cfg.Currency.Home
	executor := &service.Executor{
		Expenses:   expenses,
		Budgets:    budgets,
		Categories: categories,
		Converter:  converter,
		Vocab:      vocab,
		Home:       home,
		Log:        log,
	}

	return &runtime{
		cfg:         cfg,
		db:          db,
		log:         log,
		logCloser:   logCloser,
		expenses:    expenses,
		budgets:     budgets,
		categories:  categories,
		converter:   converter,
		interpreter: service.NewInterpreter(provider, vocab, home, log),
		executor:    executor,
		ingest: &service.IngestService{
			Expenses:   expenses,
			Categories: categories,
			Converter:  converter,
			Vocab:      vocab,
			Home:       home,
			Log:        log,
		},
		maintenance: &service.MaintenanceService{DB: db},
	}, nil
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
	if r.logCloser != nil {
		_ = r.logCloser.Close()
	}
}
