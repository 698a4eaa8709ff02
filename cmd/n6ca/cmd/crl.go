package cmd

import (
	"github.com/spf13/cobra"

	"github.com/I85YL64/n6/pki"
)

var crlOut string

var crlCmd = &cobra.Command{
	Use:   "crl",
	Short: "Generate a CRL",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _, err := environment(cmd)
		if err != nil {
			return err
		}
		crl, err := pki.GenerateCRL(cmd.Context(), env)
		if err != nil {
			return err
		}
		return writeOutput(cmd, crlOut, crl)
	},
}

func init() {
	crlCmd.Flags().StringVarP(&crlOut, "out", "o", "", "write the CRL to this file instead of stdout")
	rootCmd.AddCommand(crlCmd)
}
