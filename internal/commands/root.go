package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AnluYaens/budgetbuddy/internal/tui"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered. Running it without a subcommand starts the interactive TUI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "budgetbuddy",
		Short: "Chat-driven personal expense tracker",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newBudgetCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newKeyCommand())
	rootCmd.AddCommand(newDemoCommand())

	return rootCmd
}

func runTUI(cmd *cobra.Command) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true, fileLog: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	app := tui.New(cmd.Context(), rt.cfg,
		tui.Repos{Expenses: rt.expenses, Budgets: rt.budgets, Categories: rt.categories},
		tui.Services{
			Interpreter: rt.interpreter,
			Executor:    rt.executor,
			Ingest:      rt.ingest,
			Maintenance: rt.maintenance,
		},
	)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
