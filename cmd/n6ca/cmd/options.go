package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/I85YL64/n6/pki"
)

// manageAPISection is the config file section holding the CA settings.
const manageAPISection = "manage_api"

// Options are the settings shared by every command. Flags win over
// environment variables (N6CA_*), which win over the config file.
type Options struct {
	ConfigFile string `mapstructure:"config"`
	Verbose    bool   `mapstructure:"verbose"`
	CA         string `mapstructure:"ca"`
	Key        string `mapstructure:"key"`
	OpenSSL    string `mapstructure:"openssl"`
	TmpDir     string `mapstructure:"tmp-dir"`

	// ManageAPI is the [manage_api] section of the config file.
	ManageAPI map[string]string `mapstructure:"manage_api"`
}

// ParseOptions fills options from the command's flags, the environment and
// the config file.
func ParseOptions(cmd *cobra.Command, options *Options) error {
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	v.SetConfigName("n6ca")
	v.SetConfigType("ini")
	v.AddConfigPath("/etc/n6")
	v.AddConfigPath("$HOME/.n6")
	v.AddConfigPath(".")

	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("N6CA")
	v.AutomaticEnv()

	var errConfigFileNotFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &errConfigFileNotFound) {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := v.Unmarshal(options); err != nil {
		return err
	}

	if options.OpenSSL == "" {
		options.OpenSSL = options.ManageAPI["openssl"]
	}
	if options.TmpDir == "" {
		options.TmpDir = options.ManageAPI["tmp_dir"]
	}
	return nil
}

// KeyLocator returns the CA key locator for the CA labeled label: the --key
// flag if given, otherwise the ca_key_<label> option of the [manage_api]
// section, with dashes in the label replaced by underscores
// (client-2 -> ca_key_client_2).
func (o *Options) KeyLocator(label string) (string, error) {
	if o.Key != "" {
		return o.Key, nil
	}
	option := "ca_key_" + strings.ToLower(strings.ReplaceAll(label, "-", "_"))
	if loc := o.ManageAPI[option]; loc != "" {
		return loc, nil
	}
	return "", fmt.Errorf("no key for CA %q: set --key or the %s.%s option", label, manageAPISection, option)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// environment loads the CA manifest and builds its pki.Environment.
func environment(cmd *cobra.Command) (*pki.Environment, *pki.StaticAuthority, error) {
	var opts Options
	if err := ParseOptions(cmd, &opts); err != nil {
		return nil, nil, err
	}
	if opts.CA == "" {
		return nil, nil, errors.New("--ca is required")
	}

	ca, err := LoadManifest(appFs, opts.CA)
	if err != nil {
		return nil, nil, err
	}
	locator, err := opts.KeyLocator(ca.Label())
	if err != nil {
		return nil, nil, err
	}

	envOpts := []pki.Option{
		pki.WithFs(appFs),
		pki.WithLogger(newLogger(cmd.ErrOrStderr(), opts.Verbose)),
	}
	if opts.OpenSSL != "" {
		envOpts = append(envOpts, pki.WithOpenSSLPath(opts.OpenSSL))
	}
	if opts.TmpDir != "" {
		envOpts = append(envOpts, pki.WithTempDir(opts.TmpDir))
	}
	env, err := pki.NewEnvironment(ca, locator, envOpts...)
	if err != nil {
		return nil, nil, err
	}
	return env, ca, nil
}
