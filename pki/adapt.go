package pki

import (
	"fmt"
	"strings"

	"github.com/I85YL64/n6/internal/sslconf"
)

// defaultCAPath points at the name of the section holding the active CA's
// settings.
const defaultCAPath = "ca.default_ca"

// pkcs11Stanza is inserted above the [ca] section when the CA key lives in a
// PKCS#11 token. openssl_conf must end up in the default section.
const pkcs11Stanza = `
openssl_conf = openssl_def

[openssl_def]
engines = engine_section

[engine_section]
pkcs11 = pkcs11_section

[pkcs11_section]
engine_id = pkcs11
dynamic_path = {dynamic_path}
MODULE_PATH = {module_path}
init = 0
`

// substitution points a CA option at a sandbox path.
type substitution struct {
	option string
	path   string
}

// adaptOptions carries what the config node needs to rewrite the CA's
// configuration for one sandbox.
type adaptOptions struct {
	root   string
	paths  []substitution
	engine *EngineDescriptor
}

// adaptConfig rewrites a CA's OpenSSL configuration so that every path the
// "ca" command uses points into the sandbox at opts.root, and wires in the
// PKCS#11 engine when one is configured.
func adaptConfig(text string, opts adaptOptions) (*sslconf.Document, error) {
	doc, err := sslconf.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
	}
	section, err := doc.Get(defaultCAPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
	}

	if err := doc.Set(section+".dir", opts.root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
	}
	for _, s := range opts.paths {
		if err := doc.Set(section+"."+s.option, s.path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
		}
	}

	if opts.engine != nil {
		stanza := strings.NewReplacer(
			"{dynamic_path}", opts.engine.DynamicPath,
			"{module_path}", opts.engine.ModulePath,
		).Replace(pkcs11Stanza)
		if err := doc.InsertAbove("ca", stanza); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
		}
		if err := doc.Remove(section + ".private_key"); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
		}
	}
	return doc, nil
}
