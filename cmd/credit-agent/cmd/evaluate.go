// file: cmd/credit-agent/cmd/evaluate.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"credit-agent/internal/app"
	"credit-agent/internal/pipeline"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [application.json]",
	Short: "Evaluate one credit application and print the decision record",
	Long: `The evaluate command reads a credit application as JSON from the given
file (or stdin when no file is given), runs the five-phase evaluation and
prints the resulting record to stdout. The verdict never changes the exit
code: a rejected application is still a successful evaluation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		application, err := readApplication(args)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg)
		if err != nil {
			return &configError{err}
		}
		defer a.Close()

		record, err := a.Evaluate(cmd.Context(), application)
		if err != nil {
			return err
		}

		if draft, _ := cmd.Flags().GetBool("draft-notification"); draft {
			if err := printNotification(cmd, a, record); err != nil {
				return err
			}
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(record)
	},
}

func init() {
	evaluateCmd.Flags().Bool("draft-notification", false,
		"also draft the applicant notification with the configured assistant")
}

func readApplication(args []string) (*pipeline.CreditApplication, error) {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read application file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read application from stdin: %w", err)
		}
	}

	var application pipeline.CreditApplication
	if err := json.Unmarshal(data, &application); err != nil {
		return nil, &pipeline.InputError{Field: "body", Message: err.Error()}
	}
	return &application, nil
}

func printNotification(cmd *cobra.Command, a *app.App, record *pipeline.EvaluationRecord) error {
	client := a.Assistant()
	if client == nil {
		return &configError{fmt.Errorf("assistant API key not configured")}
	}
	text, err := client.DraftNotification(cmd.Context(), record)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), text)
	return nil
}
