package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/I85YL64/n6/pki"
)

var (
	issueCSR             string
	issueSerial          string
	issueServerComponent string
	issueOut             string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a certificate signing request",
	RunE: func(cmd *cobra.Command, args []string) error {
		if issueCSR == "" || issueSerial == "" {
			return errors.New("--csr and --serial are required")
		}
		env, _, err := environment(cmd)
		if err != nil {
			return err
		}
		csr, err := afero.ReadFile(appFs, issueCSR)
		if err != nil {
			return fmt.Errorf("reading CSR: %w", err)
		}

		cert, err := pki.IssueCertificate(cmd.Context(), env, pki.IssueRequest{
			CSR:                  string(csr),
			Serial:               issueSerial,
			ServerComponentLogin: issueServerComponent,
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd, issueOut, cert)
	},
}

func init() {
	issueCmd.Flags().StringVar(&issueCSR, "csr", "", "certificate signing request (PEM)")
	issueCmd.Flags().StringVar(&issueSerial, "serial", "", "serial number of the new certificate (hex)")
	issueCmd.Flags().StringVar(&issueServerComponent, "server-component", "", "login of the server component the certificate is issued to (service CA only)")
	issueCmd.Flags().StringVarP(&issueOut, "out", "o", "", "write the certificate to this file instead of stdout")
	rootCmd.AddCommand(issueCmd)
}

// writeOutput writes data to the file out, or to stdout if out is empty.
func writeOutput(cmd *cobra.Command, out, data string) error {
	if out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), data)
		return err
	}
	if err := afero.WriteFile(appFs, out, []byte(data), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
