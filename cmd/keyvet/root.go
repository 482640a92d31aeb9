// Package main provides the entry point for the keyvet CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for keyvet.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyvet",
		Short: "Bulk API key validator",
		Long: `keyvet validates API keys in bulk against an HTTP endpoint.

It reads keys from a newline-delimited file, issues one GET request per
key, and reports which keys the endpoint still accepts. Active keys are
written to a separate file, and every run can be saved to a local
history database for later inspection.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
