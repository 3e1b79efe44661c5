// file: cmd/credit-agent/cmd/keygen.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"credit-agent/internal/security"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the ECDSA P-384 signing key and self-signed certificate",
	Long: `The keygen command generates the request-signing key pair: a P-384
private key in PKCS#8 PEM form and a self-signed certificate to register
with the bureau developer portal. The private key file is created with mode
0600 and must never leave this machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("output")

		material, err := security.GenerateKeyMaterial(dir)
		if err != nil {
			return err
		}

		instructions := fmt.Sprintf(`Key material for the bureau sandbox
====================================

Private key:  %s
Certificate:  %s

Next steps:
  1. Upload the certificate in the bureau developer portal for your app.
  2. Download the bureau certificate and save it as the counterparty cert
     (default path: security/cdc_cert.pem).
  3. Point security.signingKeyFile and security.counterpartyCertFile at
     the files, or pass --signing-key / --counterparty-cert.

The private key never leaves this machine.
`, material.PrivateKeyPath, material.CertificatePath)

		instructionsPath := filepath.Join(dir, "INSTRUCTIONS.txt")
		if err := os.WriteFile(instructionsPath, []byte(instructions), 0o644); err != nil {
			return fmt.Errorf("failed to write instructions: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), instructions)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringP("output", "o", "security", "directory for the generated key material")
}
