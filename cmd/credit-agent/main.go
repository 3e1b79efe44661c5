// file: cmd/credit-agent/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"credit-agent/cmd/credit-agent/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "credit-agent",
	Short: "A credit evaluation agent for the Círculo de Crédito bureau APIs.",
	Long: `credit-agent evaluates consumer credit applications through a fixed
five-phase pipeline: identity validation, compliance screening, credit
analysis, amount calculation and final decision. Every outbound bureau call
is signed with ECDSA P-384 over the canonical JSON body.`,
	// If a subcommand is not provided, default to showing help.
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	cmd.AddCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
