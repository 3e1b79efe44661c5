// file: cmd/credit-agent/cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"

	"credit-agent/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation HTTP API",
	Long: `The serve command starts an HTTP server exposing POST /evaluate and
GET /healthz, plus a Prometheus metrics endpoint when metrics are enabled.
The server shuts down gracefully on SIGINT and SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("address")
		if addr != "" {
			cfg.Server.Address = addr
		}

		a, err := app.NewApp(cfg)
		if err != nil {
			return &configError{err}
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringP("address", "a", "", "override the listen address (empty = use config)")
}
