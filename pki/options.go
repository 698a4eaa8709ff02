package pki

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// Option configures an Environment.
type Option func(*Environment)

// WithFs sets the filesystem used to read the CA key and to build sandboxes.
// The OpenSSL tools only see the real filesystem, so anything other than
// afero.NewOsFs() is only useful together with WithRunner.
// Default: afero.NewOsFs().
func WithFs(fs afero.Fs) Option {
	return func(e *Environment) {
		e.fs = fs
	}
}

// WithTempDir sets the directory sandboxes are created in.
// Default: the system temporary directory.
func WithTempDir(dir string) Option {
	return func(e *Environment) {
		e.tempDir = dir
	}
}

// WithRunner sets the Runner used to execute the OpenSSL tools.
// Default: ExecRunner.
func WithRunner(r Runner) Option {
	return func(e *Environment) {
		e.runner = r
	}
}

// WithOpenSSLPath sets the openssl binary. Default: "openssl" from PATH.
func WithOpenSSLPath(path string) Option {
	return func(e *Environment) {
		e.openssl = path
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = l
	}
}

// WithClock sets the time source used to classify expired certificates.
// Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Environment) {
		e.now = now
	}
}
