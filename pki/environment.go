package pki

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/afero"
)

// Environment is everything a CA needs for sandboxed OpenSSL operations:
// the CA itself, the base sandbox contents shared by all its operations and
// the collaborators used to run them. It is built once per CA with
// NewEnvironment, is immutable afterwards and may be shared by concurrent
// operations.
type Environment struct {
	ca   Authority
	base SandboxInit

	fs      afero.Fs
	tempDir string
	runner  Runner
	openssl string
	logger  *slog.Logger
	now     func() time.Time
}

// NewEnvironment builds the Environment of ca. keyLocator is either the
// path of the CA key file, read once here and kept sealed in memory, or a
// PKCS11Prefix locator, in which case no key material is read at all.
func NewEnvironment(ca Authority, keyLocator string, opts ...Option) (*Environment, error) {
	if ca == nil {
		return nil, errors.New("CA must not be nil")
	}
	e := &Environment{
		ca:      ca,
		fs:      afero.NewOsFs(),
		runner:  ExecRunner{},
		openssl: "openssl",
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	loc, err := ParseKeyLocator(keyLocator)
	if err != nil {
		return nil, err
	}
	e.base = SandboxInit{
		SSLConfig: ca.SSLConfig(),
		IndexAttr: DefaultIndexAttr,
		CACert:    ca.CertificatePEM(),
		Engine:    loc.Engine,
	}
	if loc.Engine == nil {
		key, err := afero.ReadFile(e.fs, loc.Path)
		if err != nil {
			return nil, fmt.Errorf("reading CA key: %w", err)
		}
		if len(key) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyKey, loc.Path)
		}
		// NewEnclave wipes key.
		e.base.CAKey = memguard.NewEnclave(key)
	}
	return e, nil
}

// CA returns the environment's CA.
func (e *Environment) CA() Authority {
	return e.ca
}

// Engine returns the PKCS#11 engine descriptor, or nil for a file-based key.
func (e *Environment) Engine() *EngineDescriptor {
	return e.base.Engine
}

func (e *Environment) toolchain() *Toolchain {
	return NewToolchain(e.runner, e.openssl, e.base.Engine)
}
