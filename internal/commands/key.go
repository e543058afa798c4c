package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnluYaens/budgetbuddy/internal/secrets"
)

var keyServices = []string{secrets.ServiceGemini, secrets.ServiceExchange}

func newKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage stored API keys",
		Long: "Stores API keys in an obfuscated per-user file so they do not\n" +
			"live in plain-text config. Environment variables still take precedence.",
	}
	cmd.AddCommand(newKeySetCommand())
	cmd.AddCommand(newKeyDeleteCommand())
	return cmd
}

func newKeySetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <service>",
		Short: fmt.Sprintf("Store an API key (services: %s); the key is read from stdin", strings.Join(keyServices, ", ")),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := args[0]
			if !validKeyService(service) {
				return fmt.Errorf("unknown service %q, want one of: %s", service, strings.Join(keyServices, ", "))
			}
			fmt.Fprint(cmd.OutOrStdout(), "API key: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading key: %w", err)
			}
			key := strings.TrimSpace(line)
			if key == "" {
				return fmt.Errorf("empty key")
			}
			if err := secrets.StoreKey(service, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored key for %s\n", service)
			return nil
		},
	}
}

func newKeyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <service>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := args[0]
			if !validKeyService(service) {
				return fmt.Errorf("unknown service %q, want one of: %s", service, strings.Join(keyServices, ", "))
			}
			if err := secrets.DeleteKey(service); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key for %s\n", service)
			return nil
		},
	}
}

func validKeyService(s string) bool {
	for _, v := range keyServices {
		if s == v {
			return true
		}
	}
	return false
}
