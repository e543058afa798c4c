package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/AnluYaens/budgetbuddy/internal/config"
	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
	"github.com/AnluYaens/budgetbuddy/internal/service"
)

// App ties together views. All repository and model work happens inside
// tea.Cmd closures; the update loop itself never blocks.
type App struct {
	ctx      context.Context
	repos    Repos
	services Services
	cfg      config.Config

	state      appState
	modal      modalState
	status     string
	busy       bool
	dateFormat string
	home       string

	// chat
	chatInput string
	chatLog   []chatEntry

	// expenses
	expenses  []repository.Expense
	expCursor int
	month     time.Time

	// budgets
	budgets []budgetView

	// import flow
	importPath string
	lastImport *service.ImportSummary
}

type Repos struct {
	Expenses   *repository.ExpenseRepo
	Budgets    *repository.BudgetRepo
	Categories *repository.CategoryRepo
}

type Services struct {
	Interpreter *service.Interpreter
	Executor    *service.Executor
	Ingest      *service.IngestService
	Maintenance *service.MaintenanceService
}

type appState string

const (
	viewChat     appState = "chat"
	viewExpenses appState = "expenses"
	viewBudgets  appState = "budgets"
	viewImport   appState = "import"
)

type modalState string

const (
	modalNone         modalState = ""
	modalConfirmReset modalState = "confirmReset"
)

type chatEntry struct {
	fromUser bool
	text     string
}

type budgetView struct {
	Budget repository.Budget
	Spent  decimal.Decimal
}

// messages
type expensesMsg []repository.Expense
type budgetsMsg []budgetView
type statusMsg string
type errMsg struct{ error }
type chatReplyMsg struct{ text string }
type importDoneMsg struct{ summary service.ImportSummary }

func New(ctx context.Context, cfg config.Config, repos Repos, services Services) *App {
	return &App{
		ctx:        ctx,
		repos:      repos,
		services:   services,
		cfg:        cfg,
		state:      viewChat,
		month:      time.Now().UTC(),
		dateFormat: cfg.UI.DateFormat,
		home:       cfg.Currency.Home,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadExpenses(), a.loadBudgets())
}

func (a *App) loadExpenses() tea.Cmd {
	from := time.Date(a.month.Year(), a.month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return func() tea.Msg {
		list, err := a.repos.Expenses.List(a.ctx, repository.ExpenseFilters{
			From: from,
			To:   from.AddDate(0, 1, 0),
		})
		if err != nil {
			return errMsg{err}
		}
		return expensesMsg(list)
	}
}

func (a *App) loadBudgets() tea.Cmd {
	period := a.month.Format("2006-01")
	from := time.Date(a.month.Year(), a.month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return func() tea.Msg {
		budgets, err := a.repos.Budgets.ListForPeriod(a.ctx, period)
		if err != nil {
			return errMsg{err}
		}
		spent, err := a.repos.Expenses.SumBaseByCategoryForPeriod(a.ctx, repository.ExpenseFilters{
			From: from,
			To:   from.AddDate(0, 1, 0),
		})
		if err != nil {
			return errMsg{err}
		}
		views := make([]budgetView, 0, len(budgets))
		for _, b := range budgets {
			views = append(views, budgetView{Budget: b, Spent: spent[b.Category]})
		}
		return budgetsMsg(views)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		switch a.state {
		case viewChat:
			return a.handleChatKey(m)
		case viewImport:
			return a.handleImportKey(m)
		}
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "c":
			a.state = viewChat
		case "e":
			a.state = viewExpenses
		case "b":
			a.state = viewBudgets
			return a, a.loadBudgets()
		case "i":
			a.state = viewImport
			a.status = ""
		case "x":
			a.modal = modalConfirmReset
		case "left", "h":
			a.month = a.month.AddDate(0, -1, 0)
			return a, tea.Batch(a.loadExpenses(), a.loadBudgets())
		case "right", "l":
			a.month = a.month.AddDate(0, 1, 0)
			return a, tea.Batch(a.loadExpenses(), a.loadBudgets())
		case "up", "k":
			if a.state == viewExpenses && a.expCursor > 0 {
				a.expCursor--
			}
		case "down", "j":
			if a.state == viewExpenses && a.expCursor < len(a.expenses)-1 {
				a.expCursor++
			}
		}
	case expensesMsg:
		a.expenses = []repository.Expense(m)
		if a.expCursor >= len(a.expenses) {
			a.expCursor = 0
		}
	case budgetsMsg:
		a.budgets = []budgetView(m)
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.status = "error: " + m.Error()
		a.busy = false
	case chatReplyMsg:
		a.busy = false
		a.chatLog = append(a.chatLog, chatEntry{text: m.text})
		return a, tea.Batch(a.loadExpenses(), a.loadBudgets())
	case importDoneMsg:
		a.busy = false
		a.lastImport = &m.summary
		a.status = fmt.Sprintf("imported %d, duplicates %d, rejected %d",
			m.summary.Accepted, m.summary.Duplicates, len(m.summary.Rejected))
		return a, tea.Batch(a.loadExpenses(), a.loadBudgets())
	}
	return a, nil
}

func (a *App) handleChatKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.state = viewExpenses
	case "enter":
		text := strings.TrimSpace(a.chatInput)
		if text == "" || a.busy {
			return a, nil
		}
		a.chatInput = ""
		a.busy = true
		a.chatLog = append(a.chatLog, chatEntry{fromUser: true, text: text})
		return a, a.chatCmd(text)
	case "backspace":
		if len(a.chatInput) > 0 {
			runes := []rune(a.chatInput)
			a.chatInput = string(runes[:len(runes)-1])
		}
	default:
		if m.Type == tea.KeyRunes {
			a.chatInput += string(m.Runes)
		}
		if m.Type == tea.KeySpace {
			a.chatInput += " "
		}
	}
	return a, nil
}

func (a *App) handleImportKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.state = viewChat
	case "enter":
		path := strings.TrimSpace(a.importPath)
		if path == "" || a.busy {
			return a, nil
		}
		a.busy = true
		a.status = "importing..."
		return a, a.importCmd(path)
	case "backspace":
		if len(a.importPath) > 0 {
			runes := []rune(a.importPath)
			a.importPath = string(runes[:len(runes)-1])
		}
	default:
		if m.Type == tea.KeyRunes {
			a.importPath += string(m.Runes)
		}
		if m.Type == tea.KeySpace {
			a.importPath += " "
		}
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "y":
		a.modal = modalNone
		return a, a.resetCmd()
	case "n", "esc":
		a.modal = modalNone
	}
	return a, nil
}

// commands

func (a *App) chatCmd(text string) tea.Cmd {
	return func() tea.Msg {
		op, err := a.services.Interpreter.Interpret(a.ctx, text)
		if err != nil {
			var perr *service.ParseError
			if errors.As(err, &perr) {
				return chatReplyMsg{text: "Sorry, I couldn't work that out (" + perr.Reason + "). Try rephrasing."}
			}
			return errMsg{err}
		}
		res, err := a.services.Executor.Execute(a.ctx, op)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return chatReplyMsg{text: "I couldn't find that expense."}
			}
			return errMsg{err}
		}
		return chatReplyMsg{text: a.describeResult(res)}
	}
}

func (a *App) describeResult(res service.Result) string {
	out := res.Message
	if res.Kind == service.OpQueryExpenses {
		limit := len(res.Expenses)
		if limit > 10 {
			limit = 10
		}
		for _, e := range res.Expenses[:limit] {
			out += fmt.Sprintf("\n  #%d  %s  %-30s  %s %s",
				e.ID, e.Date.Format(a.dateFormat), e.Description, e.Amount.StringFixed(2), e.Currency)
		}
		if len(res.Expenses) > limit {
			out += fmt.Sprintf("\n  (+%d more, see expenses view)", len(res.Expenses)-limit)
		}
	}
	if res.RateStale {
		out += "\n(exchange rate may be out of date)"
	}
	return out
}

func (a *App) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		summary, err := a.services.Ingest.ImportFile(a.ctx, path)
		if err != nil {
			return errMsg{err}
		}
		return importDoneMsg{summary: summary}
	}
}

func (a *App) resetCmd() tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Maintenance.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("database reset")
	}
}

// rendering

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	userStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func (a *App) View() string {
	var body string
	switch a.state {
	case viewExpenses:
		body = a.renderExpenses()
	case viewBudgets:
		body = a.renderBudgets()
	case viewImport:
		body = a.renderImport()
	default:
		body = a.renderChat()
	}
	if a.modal == modalConfirmReset {
		body += "\n\n" + titleStyle.Render("Reset database?") + "\nThis will delete all data.\n[y] Yes  [n] No"
	}
	return body
}

func (a *App) renderChat() string {
	out := titleStyle.Render("BudgetBuddy") + "\n"
	if len(a.chatLog) == 0 {
		out += dimStyle.Render("Tell me about an expense, e.g. \"I spent $50 on groceries\".") + "\n"
	}
	start := 0
	if len(a.chatLog) > 20 {
		start = len(a.chatLog) - 20
	}
	for _, entry := range a.chatLog[start:] {
		if entry.fromUser {
			out += userStyle.Render("you> ") + entry.text + "\n"
		} else {
			out += "bot> " + entry.text + "\n"
		}
	}
	prompt := "> " + a.chatInput
	if a.busy {
		prompt = dimStyle.Render("thinking...")
	}
	out += "\n" + prompt + "\n"
	out += dimStyle.Render("[enter] Send  [esc] Expenses  [ctrl+c] Quit")
	return out
}

func (a *App) renderExpenses() string {
	title := titleStyle.Render("Expenses - " + a.month.Format("January 2006"))
	out := title + "\n"
	total := decimal.Zero
	for i, e := range a.expenses {
		marker := " "
		if i == a.expCursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s #%-4d %s  %-14s %-30s %10s %s\n",
			marker, e.ID, e.Date.Format(a.dateFormat), e.Category, e.Description,
			e.Amount.StringFixed(2), e.Currency)
		total = total.Add(e.BaseAmount)
	}
	if len(a.expenses) == 0 {
		out += dimStyle.Render("(no expenses this month)") + "\n"
	} else {
		out += fmt.Sprintf("Total: %s %s\n", total.StringFixed(2), a.home)
	}
	out += "[c] Chat  [b] Budgets  [i] Import  [←/→] Month  [x] Reset  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderBudgets() string {
	title := titleStyle.Render("Budgets - " + a.month.Format("January 2006"))
	out := title + "\n"
	if len(a.budgets) == 0 {
		out += dimStyle.Render("(no budgets set for this month)") + "\n"
	}
	sorted := make([]budgetView, len(a.budgets))
	copy(sorted, a.budgets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Budget.Category < sorted[j].Budget.Category })
	for _, bv := range sorted {
		limit := bv.Budget.Limit
		marker := " "
		if bv.Spent.GreaterThan(limit) {
			marker = "!"
		}
		out += fmt.Sprintf("%s %-16s %10s / %-10s %s\n",
			marker, bv.Budget.Category, bv.Spent.StringFixed(2), limit.StringFixed(2), a.home)
	}
	out += "[c] Chat  [e] Expenses  [←/→] Month  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderImport() string {
	title := titleStyle.Render("Import Statement")
	body := fmt.Sprintf("Statement path: %s\nType a CSV or PDF path and press Enter to import.\n[enter] Import  [esc] Back", a.importPath)
	if a.lastImport != nil {
		body += fmt.Sprintf("\nLast import: %d accepted, %d duplicates, %d rejected",
			a.lastImport.Accepted, a.lastImport.Duplicates, len(a.lastImport.Rejected))
		for i, rej := range a.lastImport.Rejected {
			if i >= 5 {
				body += fmt.Sprintf("\n  (+%d more)", len(a.lastImport.Rejected)-5)
				break
			}
			body += fmt.Sprintf("\n  line %d: %s", rej.Line, rej.Reason)
		}
	}
	if a.status != "" {
		body += "\n" + a.status
	}
	return fmt.Sprintf("%s\n%s", title, body)
}
