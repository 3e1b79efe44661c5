// file: cmd/credit-agent/cmd/root.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"credit-agent/config"
	"credit-agent/internal/pipeline"
)

// AddCommands adds all the subcommands to the root command.
func AddCommands(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", "", "path to config file (YAML or JSON)")
	root.PersistentFlags().String("api-key", "", "override the bureau API key")
	root.PersistentFlags().String("base-url", "", "override the bureau base URL")
	root.PersistentFlags().String("signing-key", "", "override the signing key file")
	root.PersistentFlags().String("counterparty-cert", "", "override the counterparty certificate file")

	root.AddCommand(evaluateCmd)
	root.AddCommand(serveCmd)
	root.AddCommand(keygenCmd)
}

// configError wraps configuration failures so they map to their own exit
// code.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// ExitCode maps an error to the process exit code: 2 for input errors, 3
// for configuration errors, 1 otherwise.
func ExitCode(err error) int {
	var inputErr *pipeline.InputError
	if errors.As(err, &inputErr) {
		return 2
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return 3
	}
	return 1
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &configError{fmt.Errorf("failed to load config: %w", err)}
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	baseURL, _ := cmd.Flags().GetString("base-url")
	signingKey, _ := cmd.Flags().GetString("signing-key")
	counterpartyCert, _ := cmd.Flags().GetString("counterparty-cert")
	cfg.ApplyOverrides(apiKey, baseURL, signingKey, counterpartyCert)

	if err := config.Validate(cfg); err != nil {
		return nil, &configError{fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}
