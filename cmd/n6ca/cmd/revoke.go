package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/I85YL64/n6/pki"
)

var (
	revokeSerial string
	revokeOut    string
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a certificate and print the resulting CRL",
	Long: `Revoke the certificate with the given serial number and print a CRL that
lists it. The revocation is not recorded anywhere: add revoked_on to the
certificate's manifest entry so that later CRLs keep listing it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if revokeSerial == "" {
			return errors.New("--serial is required")
		}
		env, ca, err := environment(cmd)
		if err != nil {
			return err
		}
		rec, ok := pki.FindCertificate(ca.Records, revokeSerial)
		if !ok {
			return fmt.Errorf("CA %q has no certificate with serial number %s", ca.Label(), revokeSerial)
		}
		if rec.Revoked() {
			return fmt.Errorf("certificate %s is already revoked", rec.SerialHex)
		}
		if rec.CertificatePEM == "" {
			return fmt.Errorf("manifest has no certificate file for serial number %s", rec.SerialHex)
		}

		crl, err := pki.RevokeCertificate(cmd.Context(), env, rec)
		if err != nil {
			return err
		}
		return writeOutput(cmd, revokeOut, crl)
	},
}

func init() {
	revokeCmd.Flags().StringVar(&revokeSerial, "serial", "", "serial number of the certificate to revoke (hex)")
	revokeCmd.Flags().StringVarP(&revokeOut, "out", "o", "", "write the CRL to this file instead of stdout")
	rootCmd.AddCommand(revokeCmd)
}
