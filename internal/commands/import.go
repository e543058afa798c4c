package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <statement>",
		Short: "Import a CSV or PDF bank statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.ingest.ImportFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accepted %d, duplicates %d, rejected %d\n",
				summary.Accepted, summary.Duplicates, len(summary.Rejected))
			for _, rej := range summary.Rejected {
				fmt.Fprintf(out, "  line %d: %s\n", rej.Line, rej.Reason)
			}
			return nil
		},
	}
}
