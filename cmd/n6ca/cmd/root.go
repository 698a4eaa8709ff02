package cmd

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// appFs is the filesystem the commands read manifests, CSRs and keys from
// and write their output to.
var appFs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "n6ca",
	Short: "n6ca runs n6 Certificate Authority operations with openssl",
	Long: `Issue certificates, revoke them and generate CRLs for an n6 Certificate
Authority. Every operation runs "openssl ca" in a throwaway directory that is
removed when the operation ends.`,
	Version:      Version,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "n6 config file (INI, [manage_api] section)")
	flags.BoolP("verbose", "v", false, "log debug messages")
	flags.String("ca", "", "CA manifest (YAML)")
	flags.String("key", "", "CA key locator, overrides the config file's ca_key_<label> option")
	flags.String("openssl", "", "openssl binary")
	flags.String("tmp-dir", "", "directory for the temporary CA directories")
}
