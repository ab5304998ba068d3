package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-digest/internal/config"
)

var secretsCommand = &cobra.Command{
	Use:   "secrets",
	Short: "Manage credentials stored in the OS keychain",
	Long: fmt.Sprintf(`Stores credentials in the OS keychain so they need not live in .env.
Values in the environment take precedence over the keychain.

Recognized keys: %s`, strings.Join(config.SecretKeys, ", ")),
}

var secretsSetCommand = &cobra.Command{
	Use:   "set KEY",
	Short: "Store a credential (value read from stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToUpper(args[0])
		value, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := config.SetSecret(key, value); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keychain\n", key)
		return nil
	},
}

var secretsDeleteCommand = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToUpper(args[0])
		if err := config.DeleteSecret(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from the keychain\n", key)
		return nil
	},
}

func init() {
	secretsCommand.AddCommand(secretsSetCommand, secretsDeleteCommand)
	rootCmd.AddCommand(secretsCommand)
}

// readSecret reads the first line of r
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
