package cmd

import "github.com/spf13/cobra"

var indexOut string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the openssl certificate database rendered from the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _, err := environment(cmd)
		if err != nil {
			return err
		}
		index, err := env.RenderIndex(cmd.Context())
		if err != nil {
			return err
		}
		return writeOutput(cmd, indexOut, index)
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "write the database to this file instead of stdout")
	rootCmd.AddCommand(indexCmd)
}
