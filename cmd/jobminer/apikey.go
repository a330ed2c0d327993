package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vpr16/jobminer/internal/secrets"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the API key stored in the OS keychain",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key used for llm extraction",
	Long:  "Stores the key in the OS keychain. With no argument the key is read from the first line of stdin, which keeps it out of shell history.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAPIKeySet,
}

var apikeyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.DeleteAPIKey(); err != nil {
			return fmt.Errorf("deleting api key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "api key removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeySetCmd, apikeyDeleteCmd)
}

func runAPIKeySet(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no api key given")
		}
		key = strings.TrimSpace(line)
	}

	if err := secrets.SetAPIKey(key); err != nil {
		return fmt.Errorf("storing api key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "api key stored in keychain")
	return nil
}
